package dispatch

import (
	"fmt"

	"warden/internal/diag"
	"warden/internal/symbols"
	"warden/internal/trace"
	"warden/internal/tree"
)

// Context is handed to a rule callback. One Context exists per rule per
// Run, so concurrently running rules never share one.
type Context struct {
	t        *tree.Tree
	rule     string
	sev      diag.Severity
	reporter diag.Reporter
	tracer   trace.Tracer
}

func (c *Context) Tree() *tree.Tree { return c.t }

func (c *Context) Symbols() *symbols.Table { return c.t.Symbols() }

// Rule returns the id of the rule being run.
func (c *Context) Rule() string { return c.rule }

// Report emits a finding anchored at anchor with the rule's severity.
// An invalid anchor is ignored: there is nothing to point at.
func (c *Context) Report(anchor tree.NodeID, msg string) {
	c.Finding(anchor, msg).Emit()
}

func (c *Context) Reportf(anchor tree.NodeID, format string, args ...any) {
	c.Report(anchor, fmt.Sprintf(format, args...))
}

// Finding starts a finding that can carry notes before Emit.
func (c *Context) Finding(anchor tree.NodeID, msg string) *diag.ReportBuilder {
	if !c.t.Valid(anchor) {
		return nil
	}
	return diag.NewReportBuilder(c.reporter, c.rule, c.sev, anchor, c.t.Span(anchor), msg)
}

// Tracer returns the dispatcher's tracer for rules that want to log detail.
func (c *Context) Tracer() trace.Tracer { return c.tracer }
