package availability

import (
	"time"

	"github.com/arefin-dev/slotbook/internal/interval"
)

// Location resolves an IANA timezone name, falling back to UTC for anything
// unparseable. The name usually comes from an unvalidated client hint, so
// this fails closed rather than erroring.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BucketByLocalDay groups slots by the local calendar date (YYYY-MM-DD) of
// each slot's start instant in the given timezone. A slot that crosses local
// midnight stays in its start day's bucket.
func BucketByLocalDay(slots []interval.Interval, tz string) map[string][]interval.Interval {
	loc := Location(tz)
	buckets := make(map[string][]interval.Interval)
	for _, s := range slots {
		day := s.Start.In(loc).Format("2006-01-02")
		buckets[day] = append(buckets[day], s)
	}
	return buckets
}
