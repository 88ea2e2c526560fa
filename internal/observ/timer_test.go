package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	i := tm.Begin("decode")
	tm.End(i, "3 nodes")
	tm.End(7, "ignored")
	j := tm.Begin("dispatch")
	tm.End(j, "")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "decode" || r.Phases[1].Name != "dispatch" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if r.Phases[0].Note != "3 nodes" {
		t.Fatalf("note lost: %+v", r.Phases[0])
	}
	if !strings.Contains(tm.Summary(), "// 3 nodes") {
		t.Fatalf("summary missing note:\n%s", tm.Summary())
	}
}

func TestSumMergesByName(t *testing.T) {
	a := Report{TotalMS: 3, Phases: []PhaseReport{{Name: "decode", DurationMS: 1, Count: 1}, {Name: "dispatch", DurationMS: 2, Count: 1}}}
	b := Report{TotalMS: 4, Phases: []PhaseReport{{Name: "cache", DurationMS: 1}, {Name: "decode", DurationMS: 3, Count: 1}}}

	got := Sum(a, b, Report{})
	if got.TotalMS != 7 {
		t.Fatalf("total = %v", got.TotalMS)
	}
	want := []PhaseReport{
		{Name: "decode", DurationMS: 4, Count: 2},
		{Name: "dispatch", DurationMS: 2, Count: 1},
		{Name: "cache", DurationMS: 1, Count: 1},
	}
	if len(got.Phases) != len(want) {
		t.Fatalf("phases = %+v", got.Phases)
	}
	for i := range want {
		if got.Phases[i] != want[i] {
			t.Fatalf("phase %d = %+v, want %+v", i, got.Phases[i], want[i])
		}
	}
	if !strings.Contains(got.Summary(), "x2") {
		t.Fatalf("summary should show counts:\n%s", got.Summary())
	}
}
