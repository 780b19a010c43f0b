// Package availability decides whether a slot is free over an
// interval. The Postgres store evaluates the same predicate in SQL;
// both must return the same answer for any input.
package availability

import (
	"sort"
	"time"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// share at least one instant.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Index keeps the non-cancelled intervals per slot, sorted by start.
// It is not safe for concurrent use; the owning store serializes
// access.
type Index struct {
	bySlot map[int64][]Interval
}

func NewIndex() *Index {
	return &Index{bySlot: make(map[int64][]Interval)}
}

// Conflicts reports whether [start,end) overlaps any indexed interval
// for the slot.
func (ix *Index) Conflicts(slotID int64, start, end time.Time) bool {
	for _, iv := range ix.bySlot[slotID] {
		if !iv.Start.Before(end) {
			// sorted by start, nothing later can overlap
			break
		}
		if Overlaps(start, end, iv.Start, iv.End) {
			return true
		}
	}
	return false
}

func (ix *Index) Insert(slotID int64, start, end time.Time) {
	ivs := ix.bySlot[slotID]
	i := sort.Search(len(ivs), func(i int) bool {
		return !ivs[i].Start.Before(start)
	})
	ivs = append(ivs, Interval{})
	copy(ivs[i+1:], ivs[i:])
	ivs[i] = Interval{Start: start, End: end}
	ix.bySlot[slotID] = ivs
}

// Remove drops the exact interval, if present. Used on cancellation.
func (ix *Index) Remove(slotID int64, start, end time.Time) {
	ivs := ix.bySlot[slotID]
	for i, iv := range ivs {
		if iv.Start.Equal(start) && iv.End.Equal(end) {
			ix.bySlot[slotID] = append(ivs[:i], ivs[i+1:]...)
			return
		}
	}
}
