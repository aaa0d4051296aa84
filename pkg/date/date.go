// Package date holds the day-granularity helpers shared by the ledger, the
// folder naming and the note headers. A calendar date is a time.Time at
// midnight UTC.
package date

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Layout is the ISO-8601 form used in the ledger and in note headers.
const Layout = "2006-01-02"

const readLayout = "2006-1-2" // permissive: single digit month/day

const Day = 24 * time.Hour

// New returns the normalized date for year, month and day.
func New(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Of drops the clock part of t, keeping t's own calendar day.
func Of(t time.Time) time.Time {
	return New(t.Date())
}

// Parse reads a date written as YYYY-MM-DD. A trailing time part, as in
// RFC3339 timestamps, is ignored.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(readLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders t as YYYY-MM-DD, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// DaysBetween returns the number of days from a to b, rounding any partial
// day up.
func DaysBetween(a, b time.Time) int {
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}

// Valid reports whether year, month and day name a real calendar day.
func Valid(year int, month time.Month, day int) bool {
	t := New(year, month, day)
	return t.Year() == year && t.Month() == month && t.Day() == day
}
