package checks

import (
	"slices"
	"strings"
	"unicode"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/exitpath"
	"warden/internal/scope"
	"warden/internal/tree"
)

const (
	msgCatchNeedsError    = "Catch block should return an error status code."
	msgInconsistentStatus = "Inconsistent use of HTTP response codes in multiple return statements."
)

// httpStatus checks that the response statuses returned by one routine agree.
type httpStatus struct {
	base
	s HTTPStatusSettings
}

func newHTTPStatus(s HTTPStatusSettings) *httpStatus {
	return &httpStatus{
		base: base{
			meta: Meta{
				Key:         Key("HttpStatusConsistency"),
				Name:        "HTTP status codes must be consistent",
				Description: "Catch blocks return error statuses, and success and error statuses are not mixed without a condition.",
				Severity:    diag.SevMajor,
				Tags:        []string{"http", "error-handling"},
			},
			kinds: []tree.Kind{tree.KindReturn},
		},
		s: s,
	}
}

func (r *httpStatus) Check(c *dispatch.Context, id tree.NodeID) {
	t := c.Tree()
	rd, ok := t.Return(id)
	if !ok || t.Kind(rd.Value) != tree.KindCall {
		return
	}
	routine, ok := scope.Enclosing(t, id, tree.KindMethod, tree.KindLambda)
	if !ok {
		return
	}

	exits := exitpath.Collect(t, routine)
	mine := slices.IndexFunc(exits, func(e exitpath.Exit) bool { return e.Stmt == id })
	if mine < 0 {
		return
	}

	policy := exitpath.Policy{
		Disallow:         exitpath.DisallowPairs(exitpath.Pair{Class: exitpath.Success, Context: exitpath.ErrorHandling}),
		RequireBranching: true,
	}
	for _, v := range exitpath.Check(t, routine, r.classify, policy) {
		if v.Exit.Stmt != id {
			continue
		}
		if v.Reason == exitpath.ReasonDisallowed {
			c.Report(rd.Value, msgCatchNeedsError)
		} else {
			c.Report(rd.Value, msgInconsistentStatus)
		}
		return
	}

	// A response whose status is not one of the known ones, next to other
	// status returns.
	if exits[mine].Context != exitpath.Normal || !r.isResponse(t, rd.Value) {
		return
	}
	if r.status(t, rd.Value) != exitpath.Unknown {
		return
	}
	responses := 0
	for _, e := range exits {
		if e.Context == exitpath.Normal && r.isResponse(t, e.Value) {
			responses++
		}
	}
	if responses > 1 {
		c.Report(rd.Value, msgInconsistentStatus)
	}
}

func (r *httpStatus) classify(t *tree.Tree, value tree.NodeID) exitpath.Class {
	if !r.isResponse(t, value) {
		return exitpath.Unknown
	}
	return r.status(t, value)
}

func (r *httpStatus) status(t *tree.Tree, call tree.NodeID) exitpath.Class {
	name := statusName(t, call)
	switch {
	case slices.Contains(r.s.Success, name):
		return exitpath.Success
	case slices.Contains(r.s.Failure, name):
		return exitpath.Failure
	}
	return exitpath.Unknown
}

// isResponse reports whether value builds one of the response types, judged
// by its resolved type or, without one, by the receiver chain text.
func (r *httpStatus) isResponse(t *tree.Tree, value tree.NodeID) bool {
	if t.Kind(value) != tree.KindCall {
		return false
	}
	if typ, st := t.TypeOf(value); st == tree.FactResolved {
		return slices.Contains(r.s.ResponseTypes, t.Symbols().TypeName(typ))
	}
	callee := tree.CalleeString(t, value)
	for _, rt := range r.s.ResponseTypes {
		if strings.HasPrefix(callee, rt+".") {
			return true
		}
	}
	return false
}

// statusName derives a status constant from a response call: an explicit
// `HttpStatus.X` argument anywhere in the chain wins, otherwise the builder
// method name is converted (`badRequest` -> BAD_REQUEST).
func statusName(t *tree.Tree, call tree.NodeID) string {
	for cur := call; t.Kind(cur) == tree.KindCall; {
		cd, _ := t.Call(cur)
		for _, a := range cd.Args {
			if sd, ok := t.Select(a); ok && t.Name(sd.Target) == "HttpStatus" {
				return sd.Name
			}
		}
		cur = cd.Receiver
	}
	cd, _ := t.Call(call)
	name := cd.Name
	// ResponseEntity.status(HttpStatus.X).build(): the builder name says nothing.
	if name == "build" || name == "body" {
		if inner, ok := t.Call(cd.Receiver); ok {
			name = inner.Name
		}
	}
	return constantCase(name)
}

func constantCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}
