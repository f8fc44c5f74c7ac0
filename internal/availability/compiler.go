// Package availability turns a host's declared availability windows into
// bookable fixed-length slots and filters them against blocking intervals
// (existing bookings, external calendar busy time).
package availability

import (
	"time"

	"github.com/arefin-dev/slotbook/internal/interval"
)

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SlotsForDay generates candidate slots of exactly dur within the windows
// that intersect the calendar day starting at dayStart (midnight in the
// desired location). Windows are clamped to the day; within each clamped
// window slots run back to back from the clamped start, with no partial
// trailing slot.
//
// Stored windows are expected to have been merged on save, but imports and
// legacy data may still overlap; slots from different windows are emitted
// independently and de-duplicated by the conflict filter downstream.
//
// Pure function of its inputs: no wall-clock reads. Past-slot exclusion is
// a separate step (FilterPast).
func SlotsForDay(windows []interval.Interval, dayStart time.Time, dur time.Duration) []interval.Interval {
	if dur <= 0 {
		return nil
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	var slots []interval.Interval
	for _, w := range windows {
		clamped := interval.Clamp(w, dayStart, dayEnd)
		if clamped.Empty() {
			continue
		}
		for cur := clamped.Start; !cur.Add(dur).After(clamped.End); cur = cur.Add(dur) {
			slots = append(slots, interval.Interval{Start: cur, End: cur.Add(dur)})
		}
	}
	return slots
}

// FilterPast drops slots that start before now. Kept separate from slot
// generation so the generator stays deterministic under test.
func FilterPast(slots []interval.Interval, now time.Time) []interval.Interval {
	var out []interval.Interval
	for _, s := range slots {
		if s.Start.Before(now) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FilterConflicts removes slots that strictly overlap any blocker. A slot
// that merely touches a blocker boundary is retained.
func FilterConflicts(slots, blockers []interval.Interval) []interval.Interval {
	var out []interval.Interval
	for _, s := range slots {
		if overlapsAny(s, blockers) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func overlapsAny(s interval.Interval, blockers []interval.Interval) bool {
	for _, b := range blockers {
		if interval.Overlaps(s, b) {
			return true
		}
	}
	return false
}

// SlotsInRange generates slots for every calendar day of [from, to] in loc
// by per-day iteration. Like SlotsForDay it is pure; callers filter past
// slots and conflicts themselves.
func SlotsInRange(windows []interval.Interval, from, to time.Time, loc *time.Location, dur time.Duration) []interval.Interval {
	var slots []interval.Interval
	for day := StartOfDay(from, loc); !day.After(to); day = day.AddDate(0, 0, 1) {
		slots = append(slots, SlotsForDay(windows, day, dur)...)
	}
	return slots
}

// HasFreeSlot reports whether the day starting at dayStart has at least one
// conflict-free future slot. It short-circuits on the first hit, so ranges
// of days can be probed without materializing every slot.
func HasFreeSlot(windows, blockers []interval.Interval, dayStart time.Time, dur time.Duration, now time.Time) bool {
	if dur <= 0 {
		return false
	}
	dayEnd := dayStart.AddDate(0, 0, 1)
	for _, w := range windows {
		clamped := interval.Clamp(w, dayStart, dayEnd)
		if clamped.Empty() {
			continue
		}
		for cur := clamped.Start; !cur.Add(dur).After(clamped.End); cur = cur.Add(dur) {
			if cur.Before(now) {
				continue
			}
			if !overlapsAny(interval.Interval{Start: cur, End: cur.Add(dur)}, blockers) {
				return true
			}
		}
	}
	return false
}

// AvailableDates walks the calendar days of [from, to] in loc and returns
// the local dates (YYYY-MM-DD) that still have a bookable slot. Days wholly
// in the past are skipped.
func AvailableDates(windows, blockers []interval.Interval, from, to time.Time, loc *time.Location, dur time.Duration, now time.Time) []string {
	var dates []string
	today := StartOfDay(now, loc)
	for day := StartOfDay(from, loc); !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Before(today) {
			continue
		}
		if HasFreeSlot(windows, blockers, day, dur, now) {
			dates = append(dates, day.Format("2006-01-02"))
		}
	}
	return dates
}
