package model

import "sync"

// CategoryTracker counts admitted records per categorical field value for a
// single extraction request. Counts only grow.
type CategoryTracker struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewCategoryTracker zero-initializes a counter for every declared category of
// every categorical field.
func NewCategoryTracker(fields []FieldSpec) *CategoryTracker {
	t := &CategoryTracker{counts: make(map[string]map[string]int)}
	for _, f := range fields {
		if f.Type != TypeCategorical || len(f.Categories) == 0 {
			continue
		}
		m := make(map[string]int, len(f.Categories))
		for _, c := range f.Categories {
			m[c] = 0
		}
		t.counts[f.Name] = m
	}
	return t
}

// Count returns the admitted count for field=category.
func (t *CategoryTracker) Count(field, category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[field][category]
}

// Snapshot copies the current counts.
func (t *CategoryTracker) Snapshot() map[string]map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]map[string]int, len(t.counts))
	for f, m := range t.counts {
		cp := make(map[string]int, len(m))
		for c, n := range m {
			cp[c] = n
		}
		out[f] = cp
	}
	return out
}

// Admit runs check against the current counts and, when it passes, increments
// the counter of every tracked field's value in r. Check and increment happen
// under one lock.
func (t *CategoryTracker) Admit(r Record, check func(count func(field, category string) int) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := func(field, category string) int { return t.counts[field][category] }
	if !check(count) {
		return false
	}
	for field, m := range t.counts {
		v, ok := r[field]
		if !ok {
			continue
		}
		if s, ok := v.Str(); ok {
			if _, tracked := m[s]; tracked {
				m[s]++
			}
		}
	}
	return true
}
