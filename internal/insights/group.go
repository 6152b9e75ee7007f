package insights

import (
	"slices"

	"retail-insights/internal/models"
)

// tally accumulates a value per key and remembers the order keys were first
// seen, so rankings can break ties deterministically.
type tally[K comparable] struct {
	order []K
	sums  map[K]float64
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{sums: make(map[K]float64)}
}

func (t *tally[K]) add(k K, v float64) {
	if _, ok := t.sums[k]; !ok {
		t.order = append(t.order, k)
	}
	t.sums[k] += v
}

func (t *tally[K]) len() int {
	return len(t.order)
}

type entry[K comparable] struct {
	key   K
	value float64
}

// ranked returns all entries by value descending; equal values keep
// first-seen order.
func (t *tally[K]) ranked() []entry[K] {
	out := t.entries()
	slices.SortStableFunc(out, func(a, b entry[K]) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		default:
			return 0
		}
	})
	return out
}

// top returns the first n ranked entries.
func (t *tally[K]) top(n int) []entry[K] {
	out := t.ranked()
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// entries returns entries in first-seen order.
func (t *tally[K]) entries() []entry[K] {
	out := make([]entry[K], 0, len(t.order))
	for _, k := range t.order {
		out = append(out, entry[K]{key: k, value: t.sums[k]})
	}
	return out
}

func points(entries []entry[string]) []models.SeriesPoint {
	out := make([]models.SeriesPoint, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.SeriesPoint{Category: e.key, Value: e.value})
	}
	return out
}
