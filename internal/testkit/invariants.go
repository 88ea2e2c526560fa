package testkit

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"warden/internal/source"
	"warden/internal/tree"
)

// CheckTreeInvariants runs the structural invariants every built tree must
// satisfy:
// 1) parent and child links agree and the root has no parent
// 2) depth grows by one per level
// 3) a non-empty child span lies inside its parent's span
// 4) sibling spans follow source order
// 5) spans stay within the unit content when the unit has text
func CheckTreeInvariants(t *tree.Tree, sf *source.File) error {
	if t == nil {
		return fmt.Errorf("nil tree")
	}
	root := t.Root()
	if _, ok := t.Parent(root); ok {
		return fmt.Errorf("root %d has a parent", root)
	}
	if t.Depth(root) != 0 {
		return fmt.Errorf("root depth is %d", t.Depth(root))
	}

	var limit uint32
	checkContent := sf != nil && sf.Flags&source.FileNoText == 0
	if checkContent {
		n, err := safecast.Conv[uint32](len(sf.Content))
		if err != nil {
			return fmt.Errorf("len content overflow: %w", err)
		}
		limit = n
	}

	var failure error
	seen := 0
	t.Walk(func(id tree.NodeID) bool {
		seen++
		sp := t.Span(id)
		if sp.File != t.Unit() {
			failure = fmt.Errorf("%s node %d: span in unit %d, tree is unit %d", t.Kind(id), id, sp.File, t.Unit())
			return false
		}
		if checkContent && sp.End > limit {
			failure = fmt.Errorf("%s node %d: span %v beyond content (%d bytes)", t.Kind(id), id, sp, limit)
			return false
		}
		var prev source.Span
		for i, c := range t.Children(id) {
			if p, ok := t.Parent(c); !ok || p != id {
				failure = fmt.Errorf("%s node %d: child %d has parent %d", t.Kind(id), id, c, p)
				return false
			}
			if t.Depth(c) != t.Depth(id)+1 {
				failure = fmt.Errorf("%s node %d: depth %d under parent depth %d", t.Kind(c), c, t.Depth(c), t.Depth(id))
				return false
			}
			cs := t.Span(c)
			if cs.Empty() {
				continue
			}
			if !sp.Contains(cs) {
				failure = fmt.Errorf("%s node %d: span %v outside parent %s %v", t.Kind(c), c, cs, t.Kind(id), sp)
				return false
			}
			if i > 0 && !prev.Empty() && cs.Start < prev.Start {
				failure = fmt.Errorf("%s node %d: starts before its previous sibling", t.Kind(c), c)
				return false
			}
			prev = cs
		}
		return true
	})
	if failure != nil {
		return failure
	}
	if seen != t.Len() {
		return fmt.Errorf("walk reached %d of %d nodes", seen, t.Len())
	}
	return nil
}

// Kinds returns the kinds of a pre-order walk, handy in test failure output.
func Kinds(t *tree.Tree) []string {
	var out []string
	t.Walk(func(id tree.NodeID) bool {
		out = append(out, t.Kind(id).String())
		return true
	})
	return slices.Clip(out)
}
