package diag

import (
	"sort"
)

type Bag struct {
	items   []Finding
	max     int
	dropped int
}

// NewBag creates a bag holding at most max findings; max <= 0 means unbounded.
func NewBag(max int) *Bag {
	capHint := max
	if capHint <= 0 || capHint > 1024 {
		capHint = 64
	}
	return &Bag{
		items: make([]Finding, 0, capHint),
		max:   max,
	}
}

// Add добавляет находку, учитывая лимит.
// Возвращает false, если находка не добавлена (достигнут лимит).
func (b *Bag) Add(f Finding) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, f)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// Dropped returns how many findings were rejected by the limit.
func (b *Bag) Dropped() int {
	return b.dropped
}

// HasAtLeast возвращает true, если есть находка с Severity >= sev.
func (b *Bag) HasAtLeast(sev Severity) bool {
	for i := range b.items {
		if b.items[i].Severity >= sev {
			return true
		}
	}
	return false
}

// длина
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice находок.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []Finding {
	return b.items
}

// Merge объединяет находки из другого Bag.
// Увеличивает max, если нужно вместить все элементы.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if b.max > 0 && newTotal > b.max {
		b.max = newTotal
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Filter keeps only findings for which keep returns true.
func (b *Bag) Filter(keep func(Finding) bool) {
	out := b.items[:0]
	for _, f := range b.items {
		if keep(f) {
			out = append(out, f)
		}
	}
	clear(b.items[len(out):])
	b.items = out
}

// Sort сортирует находки по: file, start, end, severity (desc), rule, node
// для стабильного и детерминированного порядка вывода.
func (b *Bag) Sort() {
	SortFindings(b.items)
}

// SortFindings orders findings the same way Bag.Sort does.
func SortFindings(items []Finding) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i], items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		// severity по убыванию
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Rule != dj.Rule {
			return di.Rule < dj.Rule
		}
		return di.Node < dj.Node
	})
}

// Dedup drops findings whose Key was already seen, keeping the first.
func (b *Bag) Dedup() {
	seen := make(map[Key]struct{}, len(b.items))
	b.Filter(func(f Finding) bool {
		k := f.Key()
		if _, ok := seen[k]; ok {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}
