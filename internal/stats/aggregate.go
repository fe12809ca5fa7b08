// internal/stats/aggregate.go
package stats

import (
	"sort"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// The functions below expect checks ordered newest first and return zero
// values for an empty series.

// SortNewestFirst orders checks by creation time, newest first. Stores are
// not trusted to return a particular order.
func SortNewestFirst(checks []database.Check) {
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].CreatedAt.After(checks[j].CreatedAt)
	})
}

// UptimeDuration is the length of the current incident-free streak. With
// no down check it runs from the oldest check to now; otherwise from the
// most recent down check to the newest check.
func UptimeDuration(checks []database.Check, now time.Time) time.Duration {
	if len(checks) == 0 {
		return 0
	}
	for _, c := range checks {
		if !c.Status {
			return checks[0].CreatedAt.Sub(c.CreatedAt)
		}
	}
	return now.Sub(checks[len(checks)-1].CreatedAt)
}

// LastChecked is the time elapsed since the newest check.
func LastChecked(checks []database.Check, now time.Time) time.Duration {
	if len(checks) == 0 {
		return 0
	}
	return now.Sub(checks[0].CreatedAt)
}

// LatestResponseTime is the newest check's response time in ms.
func LatestResponseTime(checks []database.Check) int64 {
	if len(checks) == 0 || checks[0].ResponseTime == nil {
		return 0
	}
	return *checks[0].ResponseTime
}

// AverageResponseTime averages the checks that carry a response time.
func AverageResponseTime(checks []database.Check) float64 {
	var sum, n int64
	for _, c := range checks {
		if c.ResponseTime != nil {
			sum += *c.ResponseTime
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// UptimePercentage is the share of successful checks, 0..100.
func UptimePercentage(checks []database.Check) float64 {
	if len(checks) == 0 {
		return 0
	}
	var up int
	for _, c := range checks {
		if c.Status {
			up++
		}
	}
	return 100 * float64(up) / float64(len(checks))
}

// IncidentCount returns the number of down checks.
func IncidentCount(checks []database.Check) int {
	var n int
	for _, c := range checks {
		if !c.Status {
			n++
		}
	}
	return n
}

// Summary holds every aggregate over one series.
type Summary struct {
	Total               int           `json:"total_checks"`
	Up                  int           `json:"up_checks"`
	Incidents           int           `json:"incidents"`
	UptimePercentage    float64       `json:"uptime_percentage"`
	AverageResponseTime float64       `json:"avg_response_time"`
	LatestResponseTime  int64         `json:"latest_response_time"`
	LastChecked         time.Duration `json:"last_checked"`
	UptimeDuration      time.Duration `json:"uptime_duration"`
	LastCheckAt         time.Time     `json:"last_check_at"`
}

// Summarize computes the same values as the individual functions in one
// pass over checks.
func Summarize(checks []database.Check, now time.Time) Summary {
	s := Summary{Total: len(checks)}
	if len(checks) == 0 {
		return s
	}

	var (
		rtSum, rtN int64
		lastDown   *database.Check
	)
	for i := range checks {
		c := &checks[i]
		if c.Status {
			s.Up++
		} else {
			s.Incidents++
			if lastDown == nil {
				lastDown = c
			}
		}
		if c.ResponseTime != nil {
			rtSum += *c.ResponseTime
			rtN++
		}
	}

	newest := checks[0]
	s.LastCheckAt = newest.CreatedAt
	s.LastChecked = now.Sub(newest.CreatedAt)
	if newest.ResponseTime != nil {
		s.LatestResponseTime = *newest.ResponseTime
	}
	if rtN > 0 {
		s.AverageResponseTime = float64(rtSum) / float64(rtN)
	}
	s.UptimePercentage = 100 * float64(s.Up) / float64(s.Total)
	if lastDown != nil {
		s.UptimeDuration = newest.CreatedAt.Sub(lastDown.CreatedAt)
	} else {
		s.UptimeDuration = now.Sub(checks[len(checks)-1].CreatedAt)
	}
	return s
}
