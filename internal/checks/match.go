package checks

import (
	"strings"

	"warden/internal/scope"
	"warden/internal/tree"
)

// flatStatements returns the direct statements of body followed by the
// statements of the catch blocks of its direct try statements. Try bodies,
// conditionals and loops are not entered.
func flatStatements(t *tree.Tree, body tree.NodeID) []tree.NodeID {
	bd, ok := t.Block(body)
	if !ok {
		return nil
	}
	out := make([]tree.NodeID, 0, len(bd.Stmts))
	for _, s := range bd.Stmts {
		out = append(out, s)
		td, ok := t.Try(s)
		if !ok {
			continue
		}
		for _, c := range td.Catches {
			cd, _ := t.Catch(c)
			if b, ok := t.Block(cd.Block); ok {
				out = append(out, b.Stmts...)
			}
		}
	}
	return out
}

// anyStatement reports whether one of stmts satisfies pred.
func anyStatement(t *tree.Tree, stmts []tree.NodeID, pred scope.Predicate) bool {
	for _, s := range stmts {
		if pred(t, s) {
			return true
		}
	}
	return false
}

// callInside reports whether a call whose rendered callee contains fragment
// appears in the expressions of one of stmts. Nested blocks are not entered,
// so a statement contributes its own expressions only.
func callInside(t *tree.Tree, stmts []tree.NodeID, fragment string) bool {
	found := false
	for _, s := range stmts {
		t.Inspect(s, func(id tree.NodeID) bool {
			if found || t.Kind(id) == tree.KindBlock {
				return false
			}
			if t.Kind(id) == tree.KindCall && strings.Contains(tree.CalleeString(t, id), fragment) {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// typedAs reports whether the resolved type of id is, or derives from, one of
// qnames. The second result is false when the type is not known.
func typedAs(t *tree.Tree, id tree.NodeID, subtype bool, qnames ...string) (bool, bool) {
	typ, st := t.TypeOf(id)
	if st != tree.FactResolved {
		return false, false
	}
	tab := t.Symbols()
	for _, q := range qnames {
		if tab.Is(typ, q) || (subtype && tab.IsSubtypeOf(typ, q)) {
			return true, true
		}
	}
	return false, true
}

// memberMethods returns the methods declared directly in a class.
func memberMethods(t *tree.Tree, class tree.NodeID, name string) []tree.NodeID {
	cd, ok := t.Class(class)
	if !ok {
		return nil
	}
	var out []tree.NodeID
	for _, m := range cd.Members {
		if md, ok := t.Method(m); ok && md.Name == name {
			out = append(out, m)
		}
	}
	return out
}
