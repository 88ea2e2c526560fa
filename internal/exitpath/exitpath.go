// Package exitpath checks that the exits of one routine agree with each
// other and with the structural context they appear in.
//
// Only shallow exits are considered: the direct return/throw statements of
// the routine body, plus the direct statements of the catch blocks of the
// body's direct try statements. Returns nested in if, loop or try bodies are
// not collected.
package exitpath

import (
	"warden/internal/scope"
	"warden/internal/tree"
)

// Class is the caller's verdict on one exit value.
type Class uint8

const (
	Unknown Class = iota
	Success
	Failure
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// Context tells where an exit sits.
type Context uint8

const (
	Normal Context = iota
	ErrorHandling
)

func (c Context) String() string {
	if c == ErrorHandling {
		return "error-handling"
	}
	return "normal"
}

// Exit is one collected return or throw.
type Exit struct {
	Stmt    tree.NodeID
	Value   tree.NodeID // NoNodeID for a bare return
	Context Context
	// Catch is the catch clause holding the exit, for ErrorHandling exits.
	Catch tree.NodeID
}

// Classifier maps a returned value to a Class. Value may be NoNodeID.
type Classifier func(t *tree.Tree, value tree.NodeID) Class

// Body returns the body block of a method or block-bodied lambda; a block
// is its own body.
func Body(t *tree.Tree, routine tree.NodeID) (tree.NodeID, bool) {
	switch t.Kind(routine) {
	case tree.KindMethod:
		m, _ := t.Method(routine)
		return m.Body, m.Body.IsValid()
	case tree.KindLambda:
		l, _ := t.Lambda(routine)
		return l.Body, t.Kind(l.Body) == tree.KindBlock
	case tree.KindBlock:
		return routine, true
	}
	return tree.NoNodeID, false
}

// Collect returns the exits of routine in source order.
func Collect(t *tree.Tree, routine tree.NodeID) []Exit {
	body, ok := Body(t, routine)
	if !ok {
		return nil
	}
	bd, _ := t.Block(body)
	var out []Exit
	for _, s := range bd.Stmts {
		if e, ok := exitOf(t, s, Normal, tree.NoNodeID); ok {
			out = append(out, e)
			continue
		}
		td, ok := t.Try(s)
		if !ok {
			continue
		}
		for _, c := range td.Catches {
			cd, ok := t.Catch(c)
			if !ok {
				continue
			}
			cb, _ := t.Block(cd.Block)
			for _, cs := range cb.Stmts {
				if e, ok := exitOf(t, cs, ErrorHandling, c); ok {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

func exitOf(t *tree.Tree, s tree.NodeID, ctx Context, catch tree.NodeID) (Exit, bool) {
	if r, ok := t.Return(s); ok {
		return Exit{Stmt: s, Value: r.Value, Context: ctx, Catch: catch}, true
	}
	if th, ok := t.Throw(s); ok {
		return Exit{Stmt: s, Value: th.Value, Context: ctx, Catch: catch}, true
	}
	return Exit{}, false
}

// Policy is what the calling rule forbids.
type Policy struct {
	// Disallow reports whether class may not appear in context.
	Disallow func(Class, Context) bool
	// RequireBranching flags a normal exit whose class differs from an
	// earlier normal exit unless a conditional precedes it.
	RequireBranching bool
}

// Reason says why an exit was flagged.
type Reason uint8

const (
	// ReasonDisallowed: the (class, context) pair is forbidden by the policy.
	ReasonDisallowed Reason = iota + 1
	// ReasonUnbranchedMix: success and failure exits with no conditional
	// separating them.
	ReasonUnbranchedMix
)

func (r Reason) String() string {
	switch r {
	case ReasonDisallowed:
		return "disallowed"
	case ReasonUnbranchedMix:
		return "unbranched-mix"
	}
	return "unknown"
}

type Violation struct {
	Exit   Exit
	Class  Class
	Reason Reason
}

// Pair is a (class, context) combination.
type Pair struct {
	Class   Class
	Context Context
}

// DisallowPairs builds a Policy.Disallow from explicit pairs.
func DisallowPairs(pairs ...Pair) func(Class, Context) bool {
	return func(c Class, ctx Context) bool {
		for _, p := range pairs {
			if p.Class == c && p.Context == ctx {
				return true
			}
		}
		return false
	}
}

// Check classifies the exits of routine and returns the ones the policy
// rejects, at most one violation per exit, in source order.
func Check(t *tree.Tree, routine tree.NodeID, classify Classifier, policy Policy) []Violation {
	exits := Collect(t, routine)
	if len(exits) == 0 {
		return nil
	}
	classes := make([]Class, len(exits))
	for i, e := range exits {
		classes[i] = classify(t, e.Value)
	}

	var out []Violation
	for i, e := range exits {
		c := classes[i]
		if policy.Disallow != nil && policy.Disallow(c, e.Context) {
			out = append(out, Violation{Exit: e, Class: c, Reason: ReasonDisallowed})
			continue
		}
		if !policy.RequireBranching || e.Context != Normal || c == Unknown {
			continue
		}
		if conflictsEarlier(exits[:i], classes[:i], c) && !scope.Preceding(t, e.Stmt, scope.OfKind(tree.KindIf)) {
			out = append(out, Violation{Exit: e, Class: c, Reason: ReasonUnbranchedMix})
		}
	}
	return out
}

func conflictsEarlier(exits []Exit, classes []Class, c Class) bool {
	for i, e := range exits {
		if e.Context == Normal && classes[i] != Unknown && classes[i] != c {
			return true
		}
	}
	return false
}
