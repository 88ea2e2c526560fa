package diag

// DedupReporter wraps another Reporter and suppresses a second finding with
// the same rule and anchor node. The first message wins.
type DedupReporter struct {
	next       Reporter
	seen       map[Key]struct{}
	suppressed int
}

// NewDedupReporter returns a Reporter that filters out duplicates while
// forwarding unique findings to the provided reporter.
func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{
		next: next,
		seen: make(map[Key]struct{}),
	}
}

func (r *DedupReporter) Report(f Finding) {
	if r == nil {
		return
	}
	key := f.Key()
	if _, ok := r.seen[key]; ok {
		r.suppressed++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(f)
	}
}

// Suppressed returns how many duplicates were dropped.
func (r *DedupReporter) Suppressed() int {
	if r == nil {
		return 0
	}
	return r.suppressed
}

// Reset forgets seen keys so the reporter can serve another traversal.
func (r *DedupReporter) Reset() {
	clear(r.seen)
	r.suppressed = 0
}
