package scope

import "warden/internal/tree"

// Ascend walks strict ancestors of from, nearest first, and returns the first
// one for which stop returns true.
func Ascend(t *tree.Tree, from tree.NodeID, stop func(tree.NodeID) bool) (tree.NodeID, bool) {
	cur := from
	for {
		p, ok := t.Parent(cur)
		if !ok {
			return tree.NoNodeID, false
		}
		if stop(p) {
			return p, true
		}
		cur = p
	}
}

// Enclosing returns the nearest strict ancestor of one of kinds.
func Enclosing(t *tree.Tree, id tree.NodeID, kinds ...tree.Kind) (tree.NodeID, bool) {
	return Ascend(t, id, func(n tree.NodeID) bool { return t.Is(n, kinds...) })
}

func EnclosingMethod(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	return Enclosing(t, id, tree.KindMethod)
}

func EnclosingClass(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	return Enclosing(t, id, tree.KindClass)
}

func EnclosingBlock(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	return Enclosing(t, id, tree.KindBlock)
}

// EnclosingDeclaration returns the nearest method, lambda or class.
func EnclosingDeclaration(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	return Enclosing(t, id, tree.KindMethod, tree.KindLambda, tree.KindClass)
}

// Statement returns the node that sits directly in the nearest enclosing
// block and contains id (id itself when it is such a statement). The ascent
// gives up at a method, class or unit.
func Statement(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	cur := id
	for t.Valid(cur) {
		p, ok := t.Parent(cur)
		if !ok {
			return tree.NoNodeID, false
		}
		switch t.Kind(p) {
		case tree.KindBlock:
			return cur, true
		case tree.KindMethod, tree.KindClass, tree.KindUnit:
			return tree.NoNodeID, false
		}
		cur = p
	}
	return tree.NoNodeID, false
}

// MethodBody returns the body block of the method enclosing id.
func MethodBody(t *tree.Tree, id tree.NodeID) (tree.NodeID, bool) {
	m, ok := EnclosingMethod(t, id)
	if !ok {
		return tree.NoNodeID, false
	}
	md, _ := t.Method(m)
	return md.Body, md.Body.IsValid()
}
