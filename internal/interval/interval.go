// Package interval provides half-open time range primitives used by the
// availability and booking packages. An Interval covers [Start, End).
package interval

import (
	"sort"
	"time"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the interval covers no time at all.
func (iv Interval) Empty() bool {
	return !iv.Start.Before(iv.End)
}

// Overlaps reports whether a and b share any instant. Touching intervals
// ([9,10) and [10,11)) do not overlap; a slot ending exactly when a busy
// block starts is still bookable.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OverlapsOrTouches additionally treats abutting intervals as connected.
// Used when coalescing declared availability windows, so [9,10) and [10,11)
// merge into one span.
func OverlapsOrTouches(a, b Interval) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// MergeAll coalesces overlapping-or-touching intervals into maximal spans.
// The input is not modified. The result is sorted by start and is the same
// for any permutation of the input; applying MergeAll twice is a no-op.
func MergeAll(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}

	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if OverlapsOrTouches(*last, iv) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Clamp truncates iv to [lo, hi]. The result may be empty; callers must
// discard intervals for which Empty reports true.
func Clamp(iv Interval, lo, hi time.Time) Interval {
	out := iv
	if out.Start.Before(lo) {
		out.Start = lo
	}
	if out.End.After(hi) {
		out.End = hi
	}
	return out
}
