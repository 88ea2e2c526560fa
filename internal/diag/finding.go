package diag

import (
	"warden/internal/source"
	"warden/internal/tree"
)

// RuleInternal tags findings produced by the engine itself (a rule that
// faulted, a unit that could not be decoded) rather than by a check.
const RuleInternal = "warden:internal"

type Note struct {
	Span source.Span
	Msg  string
}

// Finding is one reported violation. Node is the anchor the rule passed to
// Report; Primary is that node's span at report time.
type Finding struct {
	Rule     string
	Severity Severity
	Node     tree.NodeID
	Primary  source.Span
	Message  string
	Notes    []Note
}

// Key identifies the violation site: at most one finding per key is kept.
type Key struct {
	Rule string
	Unit source.FileID
	Node tree.NodeID
}

func (f Finding) Key() Key {
	return Key{Rule: f.Rule, Unit: f.Primary.File, Node: f.Node}
}

func (f Finding) WithNote(sp source.Span, msg string) Finding {
	f.Notes = append(f.Notes, Note{Span: sp, Msg: msg})
	return f
}
