package models

import (
	"fmt"
	"time"
)

const dateIDLayout = "2006-01-02"

// DayLength is the nominal width of a calendar day bucket.
const DayLength = 24 * time.Hour

// DateID formats t as YYYY-MM-DD in t's own location.
func DateID(t time.Time) string {
	return t.Format(dateIDLayout)
}

// ParseDateID parses a YYYY-MM-DD key as local midnight in loc.
func ParseDateID(id string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateIDLayout, id, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date id %q: %w", id, err)
	}
	return t, nil
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayWindowMillis returns the inclusive [start, end] millisecond window
// covering t's calendar day: local midnight to one millisecond before the
// next midnight.
func DayWindowMillis(t time.Time) (int64, int64) {
	start := StartOfDay(t)
	end := start.AddDate(0, 0, 1)
	return start.UnixMilli(), end.UnixMilli() - 1
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
