package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/observ"
	"warden/internal/source"
	"warden/internal/trace"
	"warden/internal/tree"
	"warden/internal/unitio"
)

// Options tune one scan.
type Options struct {
	// Jobs bounds the units analysed at once; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxFindings caps the merged findings; <= 0 means unbounded.
	MaxFindings int
	MinSeverity diag.Severity
	// Cache may be nil. Fingerprint must then describe the rule set.
	Cache       *FindingCache
	Fingerprint string
	Progress    ProgressSink
}

// UnitResult is the outcome of one unit document.
type UnitResult struct {
	Path string
	// File is valid when HasFile is set (the unit got as far as the FileSet).
	File     source.FileID
	HasFile  bool
	Findings []diag.Finding
	Faults   []*dispatch.Fault
	Nodes    int
	Cached   bool
	// Err is an I/O, decode or build error; other units are unaffected.
	Err    error
	Timing observ.Report
}

// Result collects a whole scan. Units keep the sorted listing order.
type Result struct {
	FileSet *source.FileSet
	Units   []UnitResult
	// Bag holds the findings of every unit at or above MinSeverity, in unit
	// order, capped at MaxFindings.
	Bag    *diag.Bag
	Timing observ.Report
}

// Errors returns the unit-level errors in unit order.
func (r *Result) Errors() []error {
	var errs []error
	for i := range r.Units {
		if r.Units[i].Err != nil {
			errs = append(errs, r.Units[i].Err)
		}
	}
	return errs
}

// Faults counts recovered rule panics across all units.
func (r *Result) Faults() int {
	n := 0
	for i := range r.Units {
		n += len(r.Units[i].Faults)
	}
	return n
}

// Scan analyses every unit document under root (a directory or one file).
func Scan(ctx context.Context, root string, d *dispatch.Dispatcher, opts Options) (*Result, error) {
	units, err := ListUnits(root)
	if err != nil {
		return nil, err
	}
	return ScanUnits(ctx, units, d, opts)
}

// ScanUnits analyses the given unit documents in parallel. Findings carry
// the source paths recorded in the documents, which the FileSet resolves
// against the working directory. The returned error is non-nil only when
// ctx was cancelled; per-unit problems land in UnitResult.Err.
func ScanUnits(ctx context.Context, units []string, d *dispatch.Dispatcher, opts Options) (*Result, error) {
	fileSet := source.NewFileSet()
	res := &Result{
		FileSet: fileSet,
		Units:   make([]UnitResult, len(units)),
		Bag:     diag.NewBag(opts.MaxFindings),
	}
	if len(units) == 0 {
		return res, nil
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "scan", trace.ParentSpan(ctx))
	span.WithExtra("units", strconv.Itoa(len(units)))
	defer span.End("")

	for _, path := range units {
		emit(opts.Progress, Event{Unit: path, Stage: StageDecode, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	g, gctx := errgroup.WithContext(trace.WithParent(ctx, span.ID()))
	g.SetLimit(min(jobs, len(units)))
	for i, path := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res.Units[i] = scanUnit(gctx, fileSet, path, d, opts, tracer)
			return nil
		})
	}
	waitErr := g.Wait()

	reports := make([]observ.Report, 0, len(units))
	for i := range res.Units {
		u := &res.Units[i]
		if u.Path == "" {
			// never scheduled: the scan was cancelled first
			u.Path = units[i]
			if waitErr != nil {
				u.Err = waitErr
			}
		}
		reports = append(reports, u.Timing)
		for _, f := range u.Findings {
			if f.Severity >= opts.MinSeverity {
				res.Bag.Add(f)
			}
		}
	}
	res.Timing = observ.Sum(reports...)
	span.WithExtra("findings", strconv.Itoa(res.Bag.Len()))
	return res, waitErr
}

func scanUnit(ctx context.Context, fileSet *source.FileSet, path string, d *dispatch.Dispatcher, opts Options, tracer trace.Tracer) (out UnitResult) {
	out.Path = path
	started := time.Now()
	timer := observ.NewTimer()
	span := trace.Begin(tracer, trace.ScopeUnit, path, trace.ParentSpan(ctx))
	defer func() {
		out.Timing = timer.Report()
		status, detail := StatusDone, strconv.Itoa(len(out.Findings))+" findings"
		switch {
		case out.Err != nil:
			status, detail = StatusError, out.Err.Error()
			trace.Error(tracer, trace.ScopeUnit, "unit", detail, map[string]string{"path": path})
		case out.Cached:
			status = StatusCached
		}
		span.End(detail)
		emit(opts.Progress, Event{
			Unit:     path,
			Stage:    StageDispatch,
			Status:   status,
			Findings: len(out.Findings),
			Err:      out.Err,
			Elapsed:  time.Since(started),
		})
	}()

	emit(opts.Progress, Event{Unit: path, Stage: StageDecode, Status: StatusWorking})
	phase := timer.Begin("read")
	format, err := unitio.FormatOf(path)
	if err != nil {
		// FormatOf already names the path
		timer.End(phase, "")
		out.Err = err
		return out
	}
	data, err := os.ReadFile(path)
	timer.End(phase, "")
	if err != nil {
		out.Err = err
		return out
	}

	var key Digest
	if opts.Cache != nil {
		phase = timer.Begin("cache")
		key = Key(data, opts.Fingerprint)
		entry, ok, err := opts.Cache.Get(key)
		timer.End(phase, "")
		if err != nil {
			// битая запись: считаем промахом
			trace.Error(tracer, trace.ScopeDriver, "cache", err.Error(), map[string]string{"path": path})
		}
		if ok {
			out.File, out.Findings = entry.restore(fileSet)
			out.HasFile, out.Cached = true, true
			return out
		}
	}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	phase = timer.Begin("decode")
	doc, err := unitio.Unmarshal(data, format)
	timer.End(phase, "")
	if err != nil {
		out.Err = fmt.Errorf("%s: decode %s: %w", path, format, err)
		return out
	}

	emit(opts.Progress, Event{Unit: path, Stage: StageBuild, Status: StatusWorking})
	phase = timer.Begin("build")
	t, err := doc.Build(fileSet)
	if err != nil {
		timer.End(phase, "")
		out.Err = err
		return out
	}
	out.File, out.HasFile, out.Nodes = t.Unit(), true, t.Len()
	timer.End(phase, strconv.Itoa(t.Len())+" nodes")

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	emit(opts.Progress, Event{Unit: path, Stage: StageDispatch, Status: StatusWorking})
	phase = timer.Begin("dispatch")
	run := d.Run(t)
	timer.End(phase, strconv.Itoa(run.Calls)+" calls")

	out.Findings = run.Findings
	out.Faults = run.Faults
	if len(run.Faults) > 0 {
		for _, f := range run.Faults {
			out.Findings = append(out.Findings, faultFinding(t, f))
		}
		diag.SortFindings(out.Findings)
		// a faulting rule may behave differently next time; do not cache
		return out
	}

	if opts.Cache != nil {
		phase = timer.Begin("cache")
		if err := opts.Cache.Put(key, cacheEntry(fileSet.Get(t.Unit()), out.Findings)); err != nil {
			trace.Error(tracer, trace.ScopeDriver, "cache", err.Error(), map[string]string{"path": path})
		}
		timer.End(phase, "store")
	}
	return out
}

// faultFinding turns a recovered rule panic into an internal finding on the
// node the rule was looking at.
func faultFinding(t *tree.Tree, f *dispatch.Fault) diag.Finding {
	return diag.Finding{
		Rule:     diag.RuleInternal,
		Severity: diag.SevMajor,
		Node:     f.Node,
		Primary:  t.Span(f.Node),
		Message:  fmt.Sprintf("rule %s failed on %s node: %v", f.Rule, t.Kind(f.Node), f.Value),
	}
}

// IsCancelled reports whether err comes from a cancelled scan.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
