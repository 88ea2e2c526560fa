package dispatch

import (
	"warden/internal/diag"
	"warden/internal/tree"
)

// Rule is a check subscribed to node kinds. Check runs once per matching
// node and must not keep state between calls.
type Rule interface {
	ID() string
	Kinds() []tree.Kind
	Check(c *Context, id tree.NodeID)
}

// SeverityRule is implemented by rules that carry a default severity.
// Rules without it report at diag.SevMajor.
type SeverityRule interface {
	Rule
	Severity() diag.Severity
}

type funcRule struct {
	id    string
	kinds []tree.Kind
	fn    func(*Context, tree.NodeID)
}

func (r funcRule) ID() string                       { return r.id }
func (r funcRule) Kinds() []tree.Kind               { return r.kinds }
func (r funcRule) Check(c *Context, id tree.NodeID) { r.fn(c, id) }

// RuleFunc builds a rule from a closure.
func RuleFunc(id string, kinds []tree.Kind, fn func(c *Context, id tree.NodeID)) Rule {
	return funcRule{id: id, kinds: kinds, fn: fn}
}
