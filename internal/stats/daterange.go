// internal/stats/daterange.go

// Package stats holds the pure aggregation functions behind monitor
// statistics: date ranges, bucketing, downsampling, counter rates and
// the single-pass aggregates over a check series.
package stats

import (
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// DateRange is a named look-back window.
type DateRange string

const (
	RangeRecent DateRange = "recent"
	RangeDay    DateRange = "day"
	RangeWeek   DateRange = "week"
	RangeMonth  DateRange = "month"
	RangeAll    DateRange = "all"
)

// ParseDateRange maps a token onto a DateRange. Unknown tokens return
// fallback and ok=false so the caller can log them.
func ParseDateRange(token string, fallback DateRange) (DateRange, bool) {
	switch r := DateRange(token); r {
	case RangeRecent, RangeDay, RangeWeek, RangeMonth, RangeAll:
		return r, true
	}
	return fallback, false
}

// Valid reports whether r is a known range.
func (r DateRange) Valid() bool {
	_, ok := ParseDateRange(string(r), "")
	return ok
}

// Granularity is the bucket width used for charting a range.
type Granularity string

const (
	Minute Granularity = "minute"
	Hour   Granularity = "hour"
	Day    Granularity = "day"
)

// Truncate returns the start of the bucket containing t, in UTC.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Minute:
		return t.Truncate(time.Minute)
	case Hour:
		return t.Truncate(time.Hour)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Window is a resolved date range.
type Window struct {
	Range       DateRange   `json:"range"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// TimeRange converts the window into store query bounds.
func (w Window) TimeRange() database.TimeRange {
	return database.TimeRange{Start: w.Start, End: w.End}
}

// Resolve turns r into concrete bounds ending at now. Unknown ranges
// resolve as RangeDay.
func Resolve(r DateRange, now time.Time) Window {
	switch r {
	case RangeRecent:
		return Window{Range: r, Start: now.Add(-2 * time.Hour), End: now, Granularity: Minute}
	case RangeWeek:
		return Window{Range: r, Start: now.Add(-7 * 24 * time.Hour), End: now, Granularity: Hour}
	case RangeMonth:
		return Window{Range: r, Start: now.AddDate(0, -1, 0), End: now, Granularity: Day}
	case RangeAll:
		return Window{Range: r, Start: time.Unix(0, 0).UTC(), End: now, Granularity: Day}
	default:
		return Window{Range: RangeDay, Start: now.Add(-24 * time.Hour), End: now, Granularity: Hour}
	}
}
