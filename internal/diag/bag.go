package diag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

type Bag struct {
	items []Diagnostic
	max   uint16
}

func NewBag(limit int) *Bag {
	capped, err := safecast.Conv[uint16](limit)
	if err != nil {
		capped = ^uint16(0)
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(limit, 64)),
		max:   capped,
	}
}

// Add appends the diagnostic unless the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// HasErrors reports whether any diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// FirstError returns the earliest error by source position.
func (b *Bag) FirstError() (Diagnostic, bool) {
	var (
		best  Diagnostic
		found bool
	)
	for _, d := range b.items {
		if d.Severity < SevError {
			continue
		}
		if !found || d.Primary.Start < best.Primary.Start {
			best = d
			found = true
		}
	}
	return best, found
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Sort orders diagnostics by file, start, end, severity (desc), code.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops repeats keyed by Code and Primary.
func (b *Bag) Dedup() {
	seen := make(map[string]bool)
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%s", d.Code.ID(), d.Primary.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}
