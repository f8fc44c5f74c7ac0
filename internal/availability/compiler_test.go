package availability

import (
	"testing"
	"time"

	"github.com/arefin-dev/slotbook/internal/interval"
)

func utc(t *testing.T, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func TestSlotsForDay_FullWorkday(t *testing.T) {
	day := utc(t, 2, 0, 0)
	windows := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 17, 0)}}

	slots := SlotsForDay(windows, day, 30*time.Minute)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots over [09:00,17:00), got %d", len(slots))
	}
	if !slots[0].Start.Equal(utc(t, 2, 9, 0)) {
		t.Fatalf("first slot starts %v", slots[0].Start)
	}
	if !slots[15].End.Equal(utc(t, 2, 17, 0)) {
		t.Fatalf("last slot ends %v", slots[15].End)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.Equal(slots[i-1].End) {
			t.Fatalf("slots %d and %d are not contiguous", i-1, i)
		}
	}
}

func TestSlotsForDay_NoPartialTrailingSlot(t *testing.T) {
	day := utc(t, 2, 0, 0)
	windows := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 10, 30)}}

	// A slot may end exactly at the window end, but nothing spills past it.
	slots := SlotsForDay(windows, day, 45*time.Minute)
	if len(slots) != 2 {
		t.Fatalf("expected two 45-minute slots over [09:00,10:30), got %d", len(slots))
	}
	if !slots[0].Start.Equal(utc(t, 2, 9, 0)) || !slots[0].End.Equal(utc(t, 2, 9, 45)) {
		t.Fatalf("first slot = [%v, %v)", slots[0].Start, slots[0].End)
	}
	if !slots[1].End.Equal(utc(t, 2, 10, 30)) {
		t.Fatalf("last slot should end at the window end, got %v", slots[1].End)
	}

	// Shrinking the window below a full second slot drops it.
	short := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 10, 20)}}
	slots = SlotsForDay(short, day, 45*time.Minute)
	if len(slots) != 1 {
		t.Fatalf("expected the partial trailing slot to be dropped, got %d slots", len(slots))
	}
}

func TestSlotsForDay_ClampsToDayBoundaries(t *testing.T) {
	day := utc(t, 2, 0, 0)
	// Window starts the previous evening and runs into the morning.
	windows := []interval.Interval{{Start: utc(t, 1, 22, 0), End: utc(t, 2, 2, 0)}}

	slots := SlotsForDay(windows, day, 60*time.Minute)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots after clamping to midnight, got %d", len(slots))
	}
	if !slots[0].Start.Equal(day) {
		t.Fatalf("first slot should start at midnight, got %v", slots[0].Start)
	}
}

func TestSlotsForDay_NoWindows(t *testing.T) {
	if slots := SlotsForDay(nil, utc(t, 2, 0, 0), 30*time.Minute); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestFilterPast(t *testing.T) {
	day := utc(t, 2, 0, 0)
	slots := SlotsForDay([]interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 10, 0)}}, day, 15*time.Minute)

	now := utc(t, 2, 9, 31)
	future := FilterPast(slots, now)
	// 09:00, 09:15, 09:30 started in the past; 09:45 remains.
	if len(future) != 1 {
		t.Fatalf("expected 1 future slot, got %d", len(future))
	}
	if !future[0].Start.Equal(utc(t, 2, 9, 45)) {
		t.Fatalf("future slot starts %v", future[0].Start)
	}
}

func TestFilterConflicts_OverlapRemovedTouchingRetained(t *testing.T) {
	slot := interval.Interval{Start: utc(t, 2, 10, 0), End: utc(t, 2, 10, 30)}

	overlapping := []interval.Interval{{Start: utc(t, 2, 10, 15), End: utc(t, 2, 10, 45)}}
	if got := FilterConflicts([]interval.Interval{slot}, overlapping); len(got) != 0 {
		t.Fatalf("overlapping booking should remove the slot, got %d slots", len(got))
	}

	touching := []interval.Interval{{Start: utc(t, 2, 10, 30), End: utc(t, 2, 11, 0)}}
	if got := FilterConflicts([]interval.Interval{slot}, touching); len(got) != 1 {
		t.Fatalf("touching busy interval should not remove the slot, got %d slots", len(got))
	}
}

func TestMondayScenario(t *testing.T) {
	// Host is free Monday 09:00-12:00, one active booking 10:00-10:30,
	// 30-minute slots: five slots remain and the 10:00 slot is excluded.
	day := utc(t, 2, 0, 0) // 2026-03-02 is a Monday
	windows := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 12, 0)}}
	blockers := []interval.Interval{{Start: utc(t, 2, 10, 0), End: utc(t, 2, 10, 30)}}

	slots := FilterConflicts(SlotsForDay(windows, day, 30*time.Minute), blockers)
	want := []time.Time{
		utc(t, 2, 9, 0), utc(t, 2, 9, 30), utc(t, 2, 10, 30), utc(t, 2, 11, 0), utc(t, 2, 11, 30),
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w) {
			t.Fatalf("slot %d starts %v, want %v", i, slots[i].Start, w)
		}
	}
}

func TestHasFreeSlot(t *testing.T) {
	day := utc(t, 2, 0, 0)
	windows := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 10, 0)}}
	fullyBooked := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 10, 0)}}

	if HasFreeSlot(windows, fullyBooked, day, 30*time.Minute, utc(t, 1, 0, 0)) {
		t.Fatal("fully booked day should have no free slot")
	}
	partiallyBooked := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 9, 30)}}
	if !HasFreeSlot(windows, partiallyBooked, day, 30*time.Minute, utc(t, 1, 0, 0)) {
		t.Fatal("expected a free slot at 09:30")
	}
}

func TestAvailableDates(t *testing.T) {
	windows := []interval.Interval{
		{Start: utc(t, 2, 9, 0), End: utc(t, 2, 12, 0)},
		{Start: utc(t, 4, 9, 0), End: utc(t, 4, 12, 0)},
	}
	now := utc(t, 1, 8, 0)
	dates := AvailableDates(windows, nil, utc(t, 1, 0, 0), utc(t, 7, 0, 0), time.UTC, 30*time.Minute, now)
	if len(dates) != 2 || dates[0] != "2026-03-02" || dates[1] != "2026-03-04" {
		t.Fatalf("AvailableDates = %v", dates)
	}
}

func TestAvailableDates_SkipsPastDays(t *testing.T) {
	windows := []interval.Interval{{Start: utc(t, 2, 9, 0), End: utc(t, 2, 12, 0)}}
	now := utc(t, 3, 8, 0) // the only window day is already over
	dates := AvailableDates(windows, nil, utc(t, 1, 0, 0), utc(t, 7, 0, 0), time.UTC, 30*time.Minute, now)
	if len(dates) != 0 {
		t.Fatalf("expected no dates, got %v", dates)
	}
}

func TestSlotsInRange(t *testing.T) {
	windows := []interval.Interval{
		{Start: utc(t, 15, 9, 0), End: utc(t, 15, 10, 0)},
		{Start: utc(t, 16, 14, 0), End: utc(t, 16, 15, 0)},
	}
	slots := SlotsInRange(windows, utc(t, 15, 0, 0), utc(t, 16, 0, 0), time.UTC, 30*time.Minute)
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4 (two hour-long windows of half-hour slots)", len(slots))
	}
	if !slots[0].Start.Equal(utc(t, 15, 9, 0)) || !slots[3].Start.Equal(utc(t, 16, 14, 30)) {
		t.Fatalf("slot bounds wrong: first %v last %v", slots[0], slots[3])
	}
}
