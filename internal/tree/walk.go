package tree

// Walk visits every node in pre-order, source order. Returning false from fn
// skips the node's children. The traversal uses an explicit stack, so deep
// trees do not grow the goroutine stack.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	t.Inspect(t.root, fn)
}

// Inspect is Walk restricted to the subtree rooted at from (inclusive).
func (t *Tree) Inspect(from NodeID, fn func(id NodeID) bool) {
	if !t.Valid(from) {
		return
	}
	stack := make([]NodeID, 1, 32)
	stack[0] = from
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(id) {
			continue
		}
		kids := t.Children(id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Collect returns the nodes of the given kinds below from (inclusive), in pre-order.
func (t *Tree) Collect(from NodeID, kinds ...Kind) []NodeID {
	var out []NodeID
	t.Inspect(from, func(id NodeID) bool {
		if t.Is(id, kinds...) {
			out = append(out, id)
		}
		return true
	})
	return out
}
