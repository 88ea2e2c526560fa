package dispatch

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"warden/internal/diag"
	"warden/internal/trace"
	"warden/internal/tree"
)

type registered struct {
	rule Rule
	id   string
	sev  diag.Severity
}

// Dispatcher runs registered rules over trees. Register every rule first;
// the first Run freezes the set. After that a Dispatcher may serve several
// trees from several goroutines at once.
type Dispatcher struct {
	mu     sync.Mutex
	rules  []registered
	ids    map[string]struct{}
	byKind [][]int // kind -> indices into rules, registration order
	frozen atomic.Bool
	opts   options
}

// Result is what one Run produced for one tree.
type Result struct {
	// Findings after dedup, sorted by position.
	Findings []diag.Finding
	Faults   []*Fault
	// Visited counts nodes, Calls counts rule invocations.
	Visited int
	Calls   int
}

func New(opts ...Option) *Dispatcher {
	o := options{
		tracer:   trace.Nop,
		severity: make(map[string]diag.Severity),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher{
		ids:    make(map[string]struct{}),
		byKind: make([][]int, tree.Count()),
		opts:   o,
	}
}

// Register adds a rule. Errors are *ConfigError.
func (d *Dispatcher) Register(r Rule) error {
	if r == nil {
		return &ConfigError{Err: ErrEmptyRuleID}
	}
	id := r.ID()
	if d.frozen.Load() {
		return &ConfigError{Rule: id, Err: ErrFrozen}
	}
	if id == "" {
		return &ConfigError{Err: ErrEmptyRuleID}
	}
	kinds := r.Kinds()
	if len(kinds) == 0 {
		return &ConfigError{Rule: id, Err: ErrNoKinds}
	}
	for _, k := range kinds {
		if !k.Valid() {
			return &ConfigError{Rule: id, Err: fmt.Errorf("%w: %d", ErrInvalidKind, k)}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.ids[id]; dup {
		return &ConfigError{Rule: id, Err: ErrDuplicateRule}
	}
	sev := diag.SevMajor
	if sr, ok := r.(SeverityRule); ok {
		sev = sr.Severity()
	}
	if over, ok := d.opts.severity[id]; ok {
		sev = over
	}
	idx := len(d.rules)
	d.rules = append(d.rules, registered{rule: r, id: id, sev: sev})
	d.ids[id] = struct{}{}

	seen := make(map[tree.Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		d.byKind[k] = append(d.byKind[k], idx)
	}
	return nil
}

// MustRegister registers static rules and panics on the first error.
func (d *Dispatcher) MustRegister(rules ...Rule) {
	for _, r := range rules {
		if err := d.Register(r); err != nil {
			panic(err)
		}
	}
}

// Rules returns the registered rules in registration order.
func (d *Dispatcher) Rules() []Rule {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Rule, len(d.rules))
	for i, r := range d.rules {
		out[i] = r.rule
	}
	return out
}

// Run dispatches t and returns its findings.
func (d *Dispatcher) Run(t *tree.Tree) *Result {
	return d.RunReporting(t, nil)
}

// RunReporting is Run that also forwards every unique finding to sink as
// soon as it is produced. sink may be nil.
func (d *Dispatcher) RunReporting(t *tree.Tree, sink diag.Reporter) *Result {
	d.frozen.Store(true)
	res := &Result{}
	if t == nil {
		return res
	}

	var reporter diag.Reporter = diag.NewDedupReporter(diag.ReporterFunc(func(f diag.Finding) {
		res.Findings = append(res.Findings, f)
		if sink != nil {
			sink.Report(f)
		}
	}))
	parallel := d.opts.parallelRules > 1
	if parallel {
		reporter = diag.NewLockedReporter(reporter)
	}

	contexts := make([]Context, len(d.rules))
	for i, r := range d.rules {
		contexts[i] = Context{t: t, rule: r.id, sev: r.sev, reporter: reporter, tracer: d.opts.tracer}
	}

	var faultsMu sync.Mutex
	addFault := func(f *Fault) {
		faultsMu.Lock()
		res.Faults = append(res.Faults, f)
		faultsMu.Unlock()
	}

	debugNodes := d.opts.tracer.Level() >= trace.LevelDebug
	t.Walk(func(id tree.NodeID) bool {
		res.Visited++
		interested := d.byKind[t.Kind(id)]
		if len(interested) == 0 {
			return true
		}
		if debugNodes {
			trace.Point(d.opts.tracer, trace.ScopeNode, t.Kind(id).String(), strconv.Itoa(len(interested))+" rules", 0)
		}
		res.Calls += len(interested)

		if !parallel || len(interested) == 1 {
			for _, idx := range interested {
				if f := d.invoke(&contexts[idx], d.rules[idx].rule, id); f != nil {
					addFault(f)
				}
			}
			return true
		}

		var g errgroup.Group
		g.SetLimit(d.opts.parallelRules)
		for _, idx := range interested {
			g.Go(func() error {
				if f := d.invoke(&contexts[idx], d.rules[idx].rule, id); f != nil {
					addFault(f)
				}
				return nil
			})
		}
		_ = g.Wait() // callbacks never return errors; faults are collected above
		return true
	})

	diag.SortFindings(res.Findings)
	sort.SliceStable(res.Faults, func(i, j int) bool {
		if res.Faults[i].Node != res.Faults[j].Node {
			return res.Faults[i].Node < res.Faults[j].Node
		}
		return res.Faults[i].Rule < res.Faults[j].Rule
	})
	return res
}

// invoke runs one callback and turns a panic into a Fault.
func (d *Dispatcher) invoke(c *Context, r Rule, id tree.NodeID) (fault *Fault) {
	defer func() {
		if v := recover(); v != nil {
			fault = &Fault{Rule: c.rule, Node: id, Value: v, Stack: debug.Stack()}
			trace.Error(d.opts.tracer, trace.ScopeRule, "fault:"+c.rule, fmt.Sprint(v), map[string]string{
				"node": strconv.FormatUint(uint64(id), 10),
				"kind": c.t.Kind(id).String(),
				"span": c.t.Span(id).String(),
			})
		}
	}()
	r.Check(c, id)
	return nil
}
