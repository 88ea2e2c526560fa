package scope

import (
	"slices"
	"strings"

	"warden/internal/tree"
)

// StatementCall returns the call a statement consists of: the expression of
// an expression statement, or the node itself when it is a call.
func StatementCall(t *tree.Tree, stmt tree.NodeID) (tree.NodeID, tree.CallData, bool) {
	id := stmt
	if es, ok := t.ExprStmt(stmt); ok {
		id = es.Expr
	}
	c, ok := t.Call(id)
	return id, c, ok
}

// CallNamed matches statements that are a call to one of names.
func CallNamed(names ...string) Predicate {
	return func(t *tree.Tree, stmt tree.NodeID) bool {
		_, c, ok := StatementCall(t, stmt)
		return ok && slices.Contains(names, c.Name)
	}
}

// CallSelectContains matches statements that are a call whose rendered
// callee (`logger.error`) contains fragment.
func CallSelectContains(fragment string) Predicate {
	return func(t *tree.Tree, stmt tree.NodeID) bool {
		call, _, ok := StatementCall(t, stmt)
		return ok && strings.Contains(tree.CalleeString(t, call), fragment)
	}
}

// OfKind matches statements of the given kinds.
func OfKind(kinds ...tree.Kind) Predicate {
	return func(t *tree.Tree, stmt tree.NodeID) bool { return t.Is(stmt, kinds...) }
}

// Any matches when one of preds does.
func Any(preds ...Predicate) Predicate {
	return func(t *tree.Tree, stmt tree.NodeID) bool {
		for _, p := range preds {
			if p(t, stmt) {
				return true
			}
		}
		return false
	}
}
