package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"warden/internal/diag"
	"warden/internal/dispatch"
	"warden/internal/tree"
	"warden/internal/unitio"
)

// unitWithCalls describes
//
//	class <name> { void run() { <call>(); ... } }
//
// without source text, so spans are synthetic.
func unitWithCalls(name string, calls ...string) *unitio.UnitDoc {
	stmts := make([]*unitio.NodeDoc, len(calls))
	for i, c := range calls {
		stmts[i] = &unitio.NodeDoc{Kind: "expr_stmt", Expr: &unitio.NodeDoc{Kind: "call", Name: c}}
	}
	return &unitio.UnitDoc{
		Path: name + ".java",
		Root: &unitio.NodeDoc{Kind: "unit", Members: []*unitio.NodeDoc{
			{Kind: "class", Name: name, Members: []*unitio.NodeDoc{
				{Kind: "method", Name: "run", Body: &unitio.NodeDoc{Kind: "block", Stmts: stmts}},
			}},
		}},
	}
}

func writeUnits(t *testing.T, dir string, docs map[string]*unitio.UnitDoc) {
	t.Helper()
	for name, doc := range docs {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := unitio.Write(path, doc); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// newDispatcher reports every call, and panics on calls named "boom".
func newDispatcher(t *testing.T, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.New(opts...)
	d.MustRegister(
		dispatch.RuleFunc("test:calls", []tree.Kind{tree.KindCall}, func(c *dispatch.Context, id tree.NodeID) {
			c.Reportf(id, "call to %s", c.Tree().Name(id))
		}),
		dispatch.RuleFunc("test:boom", []tree.Kind{tree.KindCall}, func(c *dispatch.Context, id tree.NodeID) {
			if c.Tree().Name(id) == "boom" {
				panic("exploded")
			}
		}),
	)
	return d
}

func render(res *Result) string {
	return diag.FormatGoldenFindings(res.Bag.Items(), res.FileSet, false)
}

func TestListUnits(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{
		"b.wunit.json":        unitWithCalls("B"),
		"a/a.wunit":           unitWithCalls("A"),
		".cache/c.wunit.json": unitWithCalls("C"),
	})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ListUnits(dir)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	want := []string{filepath.Join(dir, "a", "a.wunit"), filepath.Join(dir, "b.wunit.json")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListUnits = %v, want %v", got, want)
	}

	single, err := ListUnits(filepath.Join(dir, "notes.txt"))
	if err != nil || len(single) != 1 {
		t.Fatalf("a file root should be returned as is: %v, %v", single, err)
	}
	if _, err := ListUnits(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected an error for a missing root")
	}
}

func TestScanIsIndependentOfJobs(t *testing.T) {
	dir := t.TempDir()
	docs := make(map[string]*unitio.UnitDoc)
	for i := range 6 {
		name := fmt.Sprintf("Svc%d", i)
		docs[name+".wunit.json"] = unitWithCalls(name, "open", "close")
	}
	writeUnits(t, dir, docs)

	var outputs []string
	for _, jobs := range []int{1, 4} {
		res, err := Scan(context.Background(), dir, newDispatcher(t), Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("Scan(jobs=%d): %v", jobs, err)
		}
		if res.Bag.Len() != 12 {
			t.Fatalf("jobs=%d: expected 12 findings, got %d", jobs, res.Bag.Len())
		}
		outputs = append(outputs, render(res))
	}
	if outputs[0] != outputs[1] {
		t.Fatalf("output depends on jobs:\n%s\n---\n%s", outputs[0], outputs[1])
	}
	if !strings.Contains(outputs[0], "major test:calls Svc0.java:1:6 call to open") {
		t.Fatalf("unexpected output:\n%s", outputs[0])
	}
}

func TestScanKeepsGoingPastBrokenUnits(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{"ok.wunit.json": unitWithCalls("Ok", "save")})
	if err := os.WriteFile(filepath.Join(dir, "broken.wunit.json"), []byte(`{"path": "X.java", "root": {"kind": "klass"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "garbage.wunit.json"), []byte(`{`), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := Scan(context.Background(), dir, newDispatcher(t), Options{Jobs: 2})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	errs := res.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 unit errors, got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "broken.wunit.json") && !strings.Contains(errs[0].Error(), "X.java") {
		t.Fatalf("error does not name the unit: %v", errs[0])
	}
	if !strings.Contains(errs[1].Error(), "garbage.wunit.json: decode json") {
		t.Fatalf("decode error not wrapped: %v", errs[1])
	}
	if res.Bag.Len() != 1 {
		t.Fatalf("the healthy unit should still be analysed, got %d findings", res.Bag.Len())
	}
}

func TestScanRejectsUnknownUnitFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"source file", "Upload.java"},
		{"no extension", "unit"},
		{"partial suffix", "unit.json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
				t.Fatal(err)
			}
			res, err := ScanUnits(context.Background(), []string{path}, newDispatcher(t), Options{Jobs: 1})
			if err != nil {
				t.Fatalf("ScanUnits: %v", err)
			}
			u := res.Units[0]
			if !errors.Is(u.Err, unitio.ErrUnknownFormat) {
				t.Fatalf("expected ErrUnknownFormat, got %v", u.Err)
			}
			if !strings.Contains(u.Err.Error(), path) {
				t.Fatalf("error does not name the unit: %v", u.Err)
			}
			if len(u.Timing.Phases) != 1 || u.Timing.Phases[0].Name != "read" {
				t.Fatalf("expected a single read phase, got %+v", u.Timing.Phases)
			}
			if u.Timing.Phases[0].DurationMS <= 0 {
				t.Fatalf("read phase was never ended: %+v", u.Timing.Phases[0])
			}
		})
	}
}

func TestScanTurnsFaultsIntoFindings(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{"a.wunit.json": unitWithCalls("A", "boom", "fine")})

	res, err := Scan(context.Background(), dir, newDispatcher(t), Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Faults() != 1 {
		t.Fatalf("expected 1 fault, got %d", res.Faults())
	}
	want := strings.Join([]string{
		"major test:calls A.java:1:6 call to boom",
		"major warden:internal A.java:1:6 rule test:boom failed on call node: exploded",
		"major test:calls A.java:1:8 call to fine",
	}, "\n")
	if got := render(res); got != want {
		t.Fatalf("findings mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestScanMinSeverityAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{"a.wunit.json": unitWithCalls("A", "x", "y", "z")})

	res, err := Scan(context.Background(), dir, newDispatcher(t), Options{MinSeverity: diag.SevCritical})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("major findings should be filtered, got %d", res.Bag.Len())
	}

	res, err = Scan(context.Background(), dir, newDispatcher(t), Options{MaxFindings: 2})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Bag.Len() != 2 || res.Bag.Dropped() != 1 {
		t.Fatalf("limit not applied: len=%d dropped=%d", res.Bag.Len(), res.Bag.Dropped())
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestFindingCache(t *testing.T) {
	dir := t.TempDir()
	cacheDir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{
		"a.wunit.json": unitWithCalls("A", "read"),
		"b.wunit":      unitWithCalls("B", "write", "flush"),
	})
	cache, err := OpenFindingCache(cacheDir)
	if err != nil {
		t.Fatalf("OpenFindingCache: %v", err)
	}

	opts := Options{Cache: cache, Fingerprint: "v1"}
	first, err := Scan(context.Background(), dir, newDispatcher(t), opts)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	for _, u := range first.Units {
		if u.Cached {
			t.Fatalf("%s: cold cache reported a hit", u.Path)
		}
	}

	sink := &recordingSink{}
	opts.Progress = sink
	second, err := Scan(context.Background(), dir, newDispatcher(t), opts)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	for _, u := range second.Units {
		if !u.Cached {
			t.Fatalf("%s: expected a cache hit", u.Path)
		}
	}
	if render(first) != render(second) {
		t.Fatalf("cached findings differ:\n%s\n---\n%s", render(first), render(second))
	}
	cached := 0
	for _, ev := range sink.events {
		if ev.Status == StatusCached {
			cached++
		}
	}
	if cached != 2 {
		t.Fatalf("expected 2 cached events, got %d in %+v", cached, sink.events)
	}

	opts.Fingerprint = "v2"
	third, err := Scan(context.Background(), dir, newDispatcher(t), opts)
	if err != nil {
		t.Fatalf("third scan: %v", err)
	}
	if third.Units[0].Cached {
		t.Fatalf("a new fingerprint must miss")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, err := cache.Get(Key([]byte("x"), "v1")); ok || err != nil {
		t.Fatalf("Get after DropAll = %v, %v", ok, err)
	}
}

func TestFaultingUnitsAreNotCached(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{"a.wunit.json": unitWithCalls("A", "boom")})
	cache, err := OpenFindingCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache, Fingerprint: "v1"}
	for i := range 2 {
		res, err := Scan(context.Background(), dir, newDispatcher(t), opts)
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if res.Units[0].Cached {
			t.Fatalf("scan %d: faulting unit was served from cache", i)
		}
	}
}

func TestFingerprint(t *testing.T) {
	rules := map[string]diag.Severity{"warden:A": diag.SevMajor, "warden:B": diag.SevMinor}
	settings := map[string][]string{"open": {"newInputStream"}}

	a, err := Fingerprint("1.0", rules, settings)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, _ := Fingerprint("1.0", map[string]diag.Severity{"warden:B": diag.SevMinor, "warden:A": diag.SevMajor}, settings)
	if a != b {
		t.Fatalf("fingerprint depends on map order")
	}
	for name, other := range map[string]func() (string, error){
		"version":  func() (string, error) { return Fingerprint("1.1", rules, settings) },
		"severity": func() (string, error) { return Fingerprint("1.0", map[string]diag.Severity{"warden:A": diag.SevInfo, "warden:B": diag.SevMinor}, settings) },
		"settings": func() (string, error) { return Fingerprint("1.0", rules, map[string][]string{"open": {"open"}}) },
	} {
		got, err := other()
		if err != nil || got == a {
			t.Fatalf("%s change did not change the fingerprint (%v)", name, err)
		}
	}
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	writeUnits(t, dir, map[string]*unitio.UnitDoc{"a.wunit.json": unitWithCalls("A", "x")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Scan(ctx, dir, newDispatcher(t), Options{})
	if !IsCancelled(err) {
		t.Fatalf("expected a cancellation error, got %v", err)
	}
	if res == nil || res.Units[0].Path == "" || res.Units[0].Err == nil {
		t.Fatalf("unscheduled units should carry the cancellation: %+v", res)
	}
}
