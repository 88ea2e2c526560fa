package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelFilter(t *testing.T) {
	tests := []struct {
		level Level
		ev    Event
		want  bool
	}{
		{LevelOff, Event{Kind: KindError, Scope: ScopeRule}, false},
		{LevelError, Event{Kind: KindError, Scope: ScopeRule}, true},
		{LevelError, Event{Kind: KindSpanBegin, Scope: ScopeDriver}, false},
		{LevelPhase, Event{Kind: KindSpanBegin, Scope: ScopeUnit}, true},
		{LevelPhase, Event{Kind: KindSpanBegin, Scope: ScopeRule}, false},
		{LevelDetail, Event{Kind: KindPoint, Scope: ScopeRule}, true},
		{LevelDetail, Event{Kind: KindPoint, Scope: ScopeNode}, false},
		{LevelDebug, Event{Kind: KindPoint, Scope: ScopeNode}, true},
	}
	for _, tt := range tests {
		if got := tt.level.Allows(&tt.ev); got != tt.want {
			t.Errorf("%s.Allows(%s/%s) = %v, want %v", tt.level, tt.ev.Kind, tt.ev.Scope, got, tt.want)
		}
	}
}

func TestStreamTracerWritesFaultsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatText)

	span := Begin(tr, ScopeUnit, "unit:a", 0)
	span.End("")
	Error(tr, ScopeRule, "fault:warden:JwtUtils", "index out of range", map[string]string{"node": "12", "b": "x"})
	if buf.Len() != 0 {
		t.Fatalf("file-like output must be buffered until Flush")
	}
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if strings.Contains(out, "unit:a") {
		t.Fatalf("unit span must be filtered at error level:\n%s", out)
	}
	if !strings.Contains(out, "fault:warden:JwtUtils (index out of range) {b=x, node=12}") {
		t.Fatalf("fault not rendered as expected:\n%s", out)
	}
}

func TestRingSnapshotWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(r, ScopeNode, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := r.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("expected 3 ndjson lines, got %d", n)
	}
}

func TestNewPicksFormatAndRing(t *testing.T) {
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if RingOf(tr) == nil {
		t.Fatalf("both mode must expose a ring")
	}
	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() {
		t.Fatalf("off level must give a disabled tracer")
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRingTextDumpNotesOverwritten(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeNode, name, "", 0)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "... 3 earlier events overwritten\n") {
		t.Fatalf("missing overwrite header:\n%s", buf.String())
	}
}

func TestContextCarriesTracerAndParent(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop || ParentSpan(ctx) != 0 {
		t.Fatalf("empty context must give Nop and no parent")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx = WithParent(WithTracer(ctx, r), 42)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer lost by WithParent")
	}
	if got := ParentSpan(ctx); got != 42 {
		t.Fatalf("ParentSpan = %d, want 42", got)
	}
	if got := ParentSpan(WithTracer(ctx, r)); got != 0 {
		t.Fatalf("WithTracer must reset the parent, got %d", got)
	}
}

func TestHeartbeatReportsStatus(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond, func() string { return "3/4 units" })
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 {
		t.Fatalf("no heartbeat within deadline")
	}
	if snap[0].Kind != KindHeartbeat || !strings.HasSuffix(snap[0].Detail, ", 3/4 units") {
		t.Fatalf("unexpected beat: %+v", snap[0])
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("disabled tracer must not start a heartbeat")
	}
}
