package dispatch

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"warden/internal/diag"
	"warden/internal/trace"
	"warden/internal/tree"
)

// sampleTree builds
//
//	class A { void m() { a(); b(); if (x) { c(); } } }
func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	b := tree.NewBuilder(0, nil, tree.Options{SyntheticSpans: true})
	call := func(name string) tree.NodeID { return b.ExprStmt(b.Call(tree.NoNodeID, name)) }
	body := b.Block(call("a"), call("b"), b.If(b.Ident("x"), b.Block(call("c")), tree.NoNodeID))
	m := b.Method(tree.MethodSpec{Name: "m", Body: body})
	root := b.Unit(b.Class(tree.ClassSpec{Name: "A", Members: []tree.NodeID{m}}))
	tr, err := b.Finish(root)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return tr
}

func TestRegisterConfigErrors(t *testing.T) {
	noop := func(*Context, tree.NodeID) {}
	tests := []struct {
		name string
		rule Rule
		want error
	}{
		{"empty id", RuleFunc("", []tree.Kind{tree.KindCall}, noop), ErrEmptyRuleID},
		{"no kinds", RuleFunc("r", nil, noop), ErrNoKinds},
		{"invalid kind", RuleFunc("r", []tree.Kind{tree.KindInvalid}, noop), ErrInvalidKind},
		{"nil rule", nil, ErrEmptyRuleID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			err := d.Register(tt.rule)
			var cfg *ConfigError
			if !errors.As(err, &cfg) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	d := New()
	d.MustRegister(RuleFunc("r", []tree.Kind{tree.KindCall}, noop))
	if err := d.Register(RuleFunc("r", []tree.Kind{tree.KindIf}, noop)); !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	d.Run(sampleTree(t))
	if err := d.Register(RuleFunc("late", []tree.Kind{tree.KindIf}, noop)); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
}

func TestRunOrder(t *testing.T) {
	tr := sampleTree(t)
	var log []string
	rec := func(tag string) func(*Context, tree.NodeID) {
		return func(c *Context, id tree.NodeID) {
			log = append(log, tag+":"+tree.ExprString(c.Tree(), id))
		}
	}
	d := New()
	d.MustRegister(
		RuleFunc("first", []tree.Kind{tree.KindCall}, rec("1")),
		RuleFunc("second", []tree.Kind{tree.KindCall, tree.KindCall}, rec("2")),
	)
	res := d.Run(tr)

	want := []string{"1:a()", "2:a()", "1:b()", "2:b()", "1:c()", "2:c()"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("visit order:\n got %v\nwant %v", log, want)
	}
	if res.Calls != 6 || res.Visited != tr.Len() {
		t.Fatalf("Calls=%d Visited=%d (nodes %d)", res.Calls, res.Visited, tr.Len())
	}
}

func TestDedupPerRuleAndAnchor(t *testing.T) {
	tr := sampleTree(t)
	method := tr.Collect(tr.Root(), tree.KindMethod)[0]

	d := New()
	// every call re-derives the same method-level condition
	d.MustRegister(
		RuleFunc("method-level", []tree.Kind{tree.KindCall}, func(c *Context, id tree.NodeID) {
			c.Report(method, "method does something")
			c.Report(method, "reworded duplicate")
		}),
		RuleFunc("other", []tree.Kind{tree.KindCall}, func(c *Context, id tree.NodeID) {
			c.Report(method, "independent rule, same anchor")
		}),
	)
	var streamed []diag.Finding
	res := d.RunReporting(tr, diag.ReporterFunc(func(f diag.Finding) { streamed = append(streamed, f) }))

	if len(res.Findings) != 2 {
		t.Fatalf("expected one finding per rule, got %+v", res.Findings)
	}
	if len(streamed) != 2 {
		t.Fatalf("sink must see deduplicated findings only, got %d", len(streamed))
	}
	for _, f := range res.Findings {
		if f.Rule == "method-level" && f.Message != "method does something" {
			t.Fatalf("first message must win, got %q", f.Message)
		}
		if f.Node != method || f.Primary != tr.Span(method) {
			t.Fatalf("finding not anchored at method: %+v", f)
		}
	}
}

func TestFaultIsolation(t *testing.T) {
	tr := sampleTree(t)
	var buf bytes.Buffer
	tracer := trace.NewStreamTracer(&buf, trace.LevelError, trace.FormatText)

	d := New(WithTracer(tracer))
	d.MustRegister(
		RuleFunc("broken", []tree.Kind{tree.KindCall}, func(c *Context, id tree.NodeID) {
			var data []int
			_ = data[int(id)] // out of range on purpose
		}),
		RuleFunc("healthy", []tree.Kind{tree.KindCall}, func(c *Context, id tree.NodeID) {
			c.Report(id, "call seen")
		}),
	)
	res := d.Run(tr)

	if len(res.Findings) != 3 {
		t.Fatalf("healthy rule must still report every call, got %d", len(res.Findings))
	}
	if len(res.Faults) != 3 {
		t.Fatalf("expected a fault per call, got %d", len(res.Faults))
	}
	if res.Faults[0].Rule != "broken" || len(res.Faults[0].Stack) == 0 {
		t.Fatalf("unexpected fault: %+v", res.Faults[0])
	}
	if err := tracer.Flush(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "fault:broken") {
		t.Fatalf("fault was not traced:\n%s", buf.String())
	}
}

func TestParallelRulesMatchSequential(t *testing.T) {
	tr := sampleTree(t)
	rules := func() []Rule {
		var out []Rule
		for _, name := range []string{"r1", "r2", "r3", "r4"} {
			out = append(out, RuleFunc(name, []tree.Kind{tree.KindCall, tree.KindIf}, func(c *Context, id tree.NodeID) {
				c.Report(id, c.Rule()+" on "+tree.ExprString(c.Tree(), id))
				if s, ok := tr.Parent(id); ok {
					c.Report(s, "parent")
				}
			}))
		}
		return out
	}

	seq := New()
	seq.MustRegister(rules()...)
	par := New(WithParallelRules(3))
	par.MustRegister(rules()...)

	a, b := seq.Run(tr), par.Run(tr)
	if !reflect.DeepEqual(a.Findings, b.Findings) {
		t.Fatalf("parallel dispatch differs:\nseq %+v\npar %+v", a.Findings, b.Findings)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	tr := sampleTree(t)
	d := New(WithSeverity(map[string]diag.Severity{"r": diag.SevCritical}))
	d.MustRegister(RuleFunc("r", []tree.Kind{tree.KindIf, tree.KindCall}, func(c *Context, id tree.NodeID) {
		c.Reportf(id, "%s node", c.Tree().Kind(id))
	}))
	first, second := d.Run(tr), d.Run(tr)
	if !reflect.DeepEqual(first.Findings, second.Findings) {
		t.Fatalf("second run differs")
	}
	if first.Findings[0].Severity != diag.SevCritical {
		t.Fatalf("severity override not applied: %s", first.Findings[0].Severity)
	}
}
