// Package lifetime decides whether an acquired resource (a stream, a file
// handle) is released within the routine that acquired it.
//
// The answer is heuristic. A release counts when it is a direct statement
// of the enclosing method body that comes after the acquisition, or when
// the acquisition is managed by an enclosing try-with-resources. Releases
// inside conditionals, loops, nested blocks or finally blocks are not seen,
// and nothing tracks the resource through assignments or calls.
package lifetime

import (
	"slices"
	"strings"

	"warden/internal/scope"
	"warden/internal/tree"
)

// Tracker holds the method names that acquire and release resources.
type Tracker struct {
	Acquire []string
	Release []string
}

func New(acquire, release []string) *Tracker {
	return &Tracker{Acquire: slices.Clone(acquire), Release: slices.Clone(release)}
}

// IsAcquisition reports whether call is a call to an acquire method.
func (tr *Tracker) IsAcquisition(t *tree.Tree, call tree.NodeID) bool {
	c, ok := t.Call(call)
	return ok && slices.Contains(tr.Acquire, c.Name)
}

// Binding returns the name the acquired value is stored in: the variable it
// initializes or the identifier it is assigned to.
func Binding(t *tree.Tree, call tree.NodeID) (string, bool) {
	p, ok := t.Parent(call)
	if !ok {
		return "", false
	}
	if v, ok := t.Variable(p); ok && v.Init == call {
		return v.Name, v.Name != ""
	}
	if a, ok := t.Assign(p); ok && a.Value == call {
		switch t.Kind(a.Target) {
		case tree.KindIdent:
			return t.Name(a.Target), true
		case tree.KindSelect:
			// this.in = ...
			s, _ := t.Select(a.Target)
			return s.Name, true
		}
	}
	return "", false
}

// IsReleased reports whether the acquisition at call is released.
func (tr *Tracker) IsReleased(t *tree.Tree, call tree.NodeID) bool {
	if _, ok := tr.ExplicitRelease(t, call); ok {
		return true
	}
	_, ok := tr.StructuredRelease(t, call)
	return ok
}

// ExplicitRelease finds a release call among the direct statements of the
// enclosing method body that start after call. For a bound acquisition the
// release receiver must name the binding; an unbound one accepts any
// release call.
func (tr *Tracker) ExplicitRelease(t *tree.Tree, call tree.NodeID) (tree.NodeID, bool) {
	body, ok := scope.MethodBody(t, call)
	if !ok {
		return tree.NoNodeID, false
	}
	binding, bound := Binding(t, call)
	after := t.Span(call).End
	stmt, _, found := scope.Direct(t, body, func(t *tree.Tree, s tree.NodeID) bool {
		if t.Span(s).Start < after {
			return false
		}
		_, c, ok := scope.StatementCall(t, s)
		if !ok || !slices.Contains(tr.Release, c.Name) {
			return false
		}
		if !bound {
			return true
		}
		return receiverNames(t, c.Receiver, binding)
	})
	return stmt, found
}

// receiverNames reports whether recv is `name` or `<x>.name`.
func receiverNames(t *tree.Tree, recv tree.NodeID, name string) bool {
	switch t.Kind(recv) {
	case tree.KindIdent:
		return t.Name(recv) == name
	case tree.KindSelect:
		return strings.HasSuffix(tree.ExprString(t, recv), "."+name)
	}
	return false
}

// StructuredRelease ascends through every try statement enclosing call and
// returns the first whose resources manage the acquisition.
func (tr *Tracker) StructuredRelease(t *tree.Tree, call tree.NodeID) (tree.NodeID, bool) {
	binding, bound := Binding(t, call)
	typ, typed := acquiredType(t, call)
	via := call
	return scope.Ascend(t, call, func(n tree.NodeID) bool {
		from := via
		via = n
		td, ok := t.Try(n)
		if !ok {
			return false
		}
		for _, res := range td.Resources {
			if res == from {
				// the acquisition is (inside) this resource declaration
				return true
			}
			if bound && namesBinding(t, res, binding) {
				return true
			}
			if typed && initType(t, res) == typ {
				return true
			}
		}
		return false
	})
}

// namesBinding: `try (in)` or `try (InputStream s = in)`.
func namesBinding(t *tree.Tree, res tree.NodeID, binding string) bool {
	if t.Kind(res) == tree.KindIdent {
		return t.Name(res) == binding
	}
	if v, ok := t.Variable(res); ok && t.Kind(v.Init) == tree.KindIdent {
		return t.Name(v.Init) == binding
	}
	return false
}

func acquiredType(t *tree.Tree, call tree.NodeID) (string, bool) {
	q := t.TypeQualifiedName(call)
	return q, q != ""
}

// initType is the resolved type of a resource initializer call, or "".
func initType(t *tree.Tree, res tree.NodeID) string {
	v, ok := t.Variable(res)
	if !ok || t.Kind(v.Init) != tree.KindCall {
		return ""
	}
	return t.TypeQualifiedName(v.Init)
}
