// internal/database/query.go
package database

import (
	"sort"
	"strings"
)

// Matches reports whether m passes every filter set on q.
func (q MonitorQuery) Matches(m Monitor) bool {
	if q.TeamID != "" && m.TeamID != q.TeamID {
		return false
	}
	if len(q.Types) > 0 && !containsType(q.Types, m.Type) {
		return false
	}
	if q.Active != nil && m.IsActive != *q.Active {
		return false
	}
	if q.Status != nil && m.Status != *q.Status {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(m.Name), needle) &&
			!strings.Contains(strings.ToLower(m.URL), needle) {
			return false
		}
	}
	return true
}

// Matches reports whether m passes the listing filters.
func (f MonitorFilters) Matches(m Monitor) bool {
	return MonitorQuery{TeamID: f.TeamID, Types: f.Types, Active: f.Active}.Matches(m)
}

func containsType(types []MonitorType, t MonitorType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// SortMonitors orders monitors by field. Unknown fields sort by name.
// Ties break on id so paging is stable.
func SortMonitors(monitors []Monitor, field string, order SortOrder) {
	less := func(a, b Monitor) bool {
		switch field {
		case "type":
			return a.Type < b.Type
		case "url":
			return a.URL < b.URL
		case "status":
			return !a.Status && b.Status
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "interval":
			return a.Interval < b.Interval
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(monitors, func(i, j int) bool {
		a, b := monitors[i], monitors[j]
		if less(a, b) {
			return order != SortDesc
		}
		if less(b, a) {
			return order == SortDesc
		}
		return a.ID < b.ID
	})
}

// PageBounds converts a zero-based page and page size into slice bounds
// over n items. A non-positive perPage selects everything.
func PageBounds(n, page, perPage int) (int, int) {
	if perPage <= 0 {
		return 0, n
	}
	if page < 0 {
		page = 0
	}
	start := page * perPage
	if start > n {
		start = n
	}
	end := start + perPage
	if end > n {
		end = n
	}
	return start, end
}

// Tally counts monitors into the team summary. Paused monitors still count
// as up or down by their last known status.
func Tally(monitors []Monitor) *MonitorCounts {
	counts := &MonitorCounts{Total: len(monitors)}
	for _, m := range monitors {
		if m.Status {
			counts.Up++
		} else {
			counts.Down++
		}
		if !m.IsActive {
			counts.Paused++
		}
	}
	return counts
}
