package scope

import (
	"slices"

	"warden/internal/tree"
)

// Predicate tests one statement.
type Predicate func(t *tree.Tree, stmt tree.NodeID) bool

// Position locates a statement inside a block.
type Position struct {
	Block tree.NodeID
	Index int
}

// Preceding reports whether some statement before stmt, in stmt's block or
// in any enclosing block up to the enclosing declaration, satisfies pred.
func Preceding(t *tree.Tree, stmt tree.NodeID, pred Predicate) bool {
	_, _, ok := FindPreceding(t, stmt, pred)
	return ok
}

// Following is Preceding in forward source order.
func Following(t *tree.Tree, stmt tree.NodeID, pred Predicate) bool {
	_, _, ok := find(t, stmt, pred, false)
	return ok
}

// FindPreceding returns the closest preceding statement matching pred.
// Each statement is tested at most once and the ascent stops at the
// enclosing method, lambda or class, so the work is bounded by the size
// of the enclosing blocks plus the depth of stmt.
func FindPreceding(t *tree.Tree, stmt tree.NodeID, pred Predicate) (tree.NodeID, Position, bool) {
	return find(t, stmt, pred, true)
}

func find(t *tree.Tree, stmt tree.NodeID, pred Predicate, backward bool) (tree.NodeID, Position, bool) {
	decl, _ := EnclosingDeclaration(t, stmt)
	anchor := stmt
	for t.Valid(anchor) {
		block, ok := t.Parent(anchor)
		if !ok {
			break
		}
		if bd, isBlock := t.Block(block); isBlock {
			idx := slices.Index(bd.Stmts, anchor)
			if backward {
				for i := idx - 1; i >= 0; i-- {
					if pred(t, bd.Stmts[i]) {
						return bd.Stmts[i], Position{Block: block, Index: i}, true
					}
				}
			} else if idx >= 0 {
				for i := idx + 1; i < len(bd.Stmts); i++ {
					if pred(t, bd.Stmts[i]) {
						return bd.Stmts[i], Position{Block: block, Index: i}, true
					}
				}
			}
		}
		anchor = outerStatement(t, block, decl)
	}
	return tree.NoNodeID, Position{}, false
}

// outerStatement climbs from n to the next node that sits directly in a
// block, refusing to climb through decl.
func outerStatement(t *tree.Tree, n, decl tree.NodeID) tree.NodeID {
	cur := n
	for cur != decl {
		p, ok := t.Parent(cur)
		if !ok {
			return tree.NoNodeID
		}
		if t.Kind(p) == tree.KindBlock {
			return cur
		}
		cur = p
	}
	return tree.NoNodeID
}

// Direct scans the direct statements of block in source order and returns
// the first one matching pred. Nested blocks are not entered.
func Direct(t *tree.Tree, block tree.NodeID, pred Predicate) (tree.NodeID, Position, bool) {
	bd, ok := t.Block(block)
	if !ok {
		return tree.NoNodeID, Position{}, false
	}
	for i, s := range bd.Stmts {
		if pred(t, s) {
			return s, Position{Block: block, Index: i}, true
		}
	}
	return tree.NoNodeID, Position{}, false
}

// IndexIn returns stmt's position in its block.
func IndexIn(t *tree.Tree, stmt tree.NodeID) (Position, bool) {
	block, ok := t.Parent(stmt)
	if !ok {
		return Position{}, false
	}
	bd, ok := t.Block(block)
	if !ok {
		return Position{}, false
	}
	i := slices.Index(bd.Stmts, stmt)
	return Position{Block: block, Index: i}, i >= 0
}
