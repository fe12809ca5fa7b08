// internal/engine/monitor_stats.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/stats"
)

// MonitorStatsQuery are the options of GetMonitorStats.
type MonitorStatsQuery struct {
	SortOrder    database.SortOrder
	DateRange    string
	NumToDisplay int
	Normalize    bool
}

// BucketStats aggregates the checks of one time bucket.
type BucketStats struct {
	Time             time.Time `json:"time"`
	TotalChecks      int       `json:"total_checks"`
	UpChecks         int       `json:"up_checks"`
	Incidents        int       `json:"incidents"`
	UptimePercentage float64   `json:"uptime_percentage"`
	AvgResponseTime  float64   `json:"avg_response_time"`
}

func bucketStats(b stats.Bucket) BucketStats {
	s := stats.Summarize(b.Checks, b.Time)
	return BucketStats{
		Time:             b.Time,
		TotalChecks:      s.Total,
		UpChecks:         s.Up,
		Incidents:        s.Incidents,
		UptimePercentage: s.UptimePercentage,
		AvgResponseTime:  s.AverageResponseTime,
	}
}

// MonitorStats combines lifetime figures from the full history with
// period figures from the requested window.
type MonitorStats struct {
	Monitor *database.Monitor `json:"monitor"`
	Window  stats.Window      `json:"window"`

	UptimeDuration     time.Duration `json:"uptime_duration"`
	LastChecked        time.Duration `json:"last_checked"`
	LatestResponseTime int64         `json:"latest_response_time"`
	TotalChecks        int           `json:"total_checks"`

	Period  stats.Summary      `json:"period"`
	Buckets []BucketStats      `json:"buckets"`
	Dropped int                `json:"dropped,omitempty"`
	Checks  []stats.ChartCheck `json:"checks"`
}

// GetMonitorStats assembles the stats payload for one monitor.
func (e *Engine) GetMonitorStats(ctx context.Context, monitorID string, q MonitorStatsQuery) (result *MonitorStats, err error) {
	defer func(started time.Time) { e.metrics.ObserveQuery("monitor_stats", started, err) }(time.Now())

	monitor, err := e.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}

	window := e.ResolveRange(q.DateRange)
	facets, err := e.store.FindCheckFacets(ctx, monitorID, window.TimeRange())
	e.metrics.RecordDatabaseOperation("find_check_facets", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load checks: %w", err)
	}
	stats.SortNewestFirst(facets.All)
	stats.SortNewestFirst(facets.Windowed)

	now := e.now()
	lifetime := stats.Summarize(facets.All, now)
	period := stats.Summarize(facets.Windowed, now)

	grouping := stats.GroupByTime(facets.Windowed, window.Granularity)

	result = &MonitorStats{
		Monitor:            monitor,
		Window:             window,
		UptimeDuration:     lifetime.UptimeDuration,
		LastChecked:        lifetime.LastChecked,
		LatestResponseTime: lifetime.LatestResponseTime,
		TotalChecks:        lifetime.Total,
		Period:             period,
		Buckets:            stats.AggregateBuckets(grouping, bucketStats),
		Dropped:            grouping.Dropped,
		Checks:             e.chartChecks(facets.Windowed, q.SortOrder, q.NumToDisplay, q.Normalize),
	}
	return result, nil
}

// chartChecks orders, downsamples and optionally rescales checks (given
// newest first) for rendering. The input slice is not modified.
func (e *Engine) chartChecks(checks []database.Check, order database.SortOrder, numToDisplay int, normalize bool) []stats.ChartCheck {
	ordered := make([]database.Check, len(checks))
	copy(ordered, checks)
	if order == database.SortAsc {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	if numToDisplay > 0 {
		ordered = stats.Downsample(ordered, numToDisplay)
	}
	if normalize {
		return stats.NormalizeChecks(ordered, e.config.Stats.NormalizeLow, e.config.Stats.NormalizeHigh)
	}
	return stats.ChartChecks(ordered)
}

// UptimeDetails is the grouped time series behind the uptime charts.
type UptimeDetails struct {
	Monitor *database.Monitor `json:"monitor"`
	Window  stats.Window      `json:"window"`
	Totals  stats.Summary     `json:"totals"`
	Buckets []BucketStats     `json:"buckets"`
	Dropped int               `json:"dropped,omitempty"`
}

// GetUptimeDetails returns window totals and per-bucket uptime without
// the raw chart series.
func (e *Engine) GetUptimeDetails(ctx context.Context, monitorID, dateRange string) (result *UptimeDetails, err error) {
	defer func(started time.Time) { e.metrics.ObserveQuery("uptime_details", started, err) }(time.Now())

	monitor, err := e.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}

	window := e.ResolveRange(dateRange)
	checks, err := e.store.FindChecks(ctx, monitorID, window.TimeRange())
	e.metrics.RecordDatabaseOperation("find_checks", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load checks: %w", err)
	}
	stats.SortNewestFirst(checks)

	grouping := stats.GroupByTime(checks, window.Granularity)
	return &UptimeDetails{
		Monitor: monitor,
		Window:  window,
		Totals:  stats.Summarize(checks, e.now()),
		Buckets: stats.AggregateBuckets(grouping, bucketStats),
		Dropped: grouping.Dropped,
	}, nil
}

// ListChecks pages through a monitor's raw history.
func (e *Engine) ListChecks(ctx context.Context, q database.CheckQuery) (*database.CheckPage, error) {
	if _, err := e.store.GetMonitor(ctx, q.MonitorID); err != nil {
		return nil, err
	}

	page, err := e.store.PageChecks(ctx, q)
	e.metrics.RecordDatabaseOperation("page_checks", err)
	if err != nil {
		return nil, fmt.Errorf("failed to page checks: %w", err)
	}
	return page, nil
}
