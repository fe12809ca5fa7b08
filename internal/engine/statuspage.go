// internal/engine/statuspage.go
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/maintenance"
	"github.com/John-MustangGT/vantage/internal/stats"
)

// StatusPageMonitor is one monitor as shown on a public status page.
type StatusPageMonitor struct {
	database.Monitor
	IsMaintenance    bool               `json:"isMaintenance"`
	UptimePercentage float64            `json:"uptime_percentage"`
	Checks           []stats.ChartCheck `json:"checks"`
}

// StatusPageView is the assembled payload of a published status page.
type StatusPageView struct {
	StatusPage  *database.StatusPage `json:"statusPage"`
	Monitors    []StatusPageMonitor  `json:"monitors"`
	SubMonitors []StatusPageMonitor  `json:"subMonitors,omitempty"`
}

// GetStatusPage builds the public payload for the page at url. Monitors
// keep the page's declared order; ids that no longer resolve are left out.
func (e *Engine) GetStatusPage(ctx context.Context, url string) (result *StatusPageView, err error) {
	defer func(started time.Time) { e.metrics.ObserveQuery("status_page", started, err) }(time.Now())

	page, err := e.store.GetStatusPageByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if !page.IsPublished {
		return nil, fmt.Errorf("status page %s: %w", url, database.ErrNotFound)
	}

	monitors, err := e.statusPageMonitors(ctx, page.Monitors)
	if err != nil {
		return nil, err
	}
	subMonitors, err := e.statusPageMonitors(ctx, page.SubMonitors)
	if err != nil {
		return nil, err
	}

	return &StatusPageView{
		StatusPage:  page,
		Monitors:    monitors,
		SubMonitors: subMonitors,
	}, nil
}

func (e *Engine) statusPageMonitors(ctx context.Context, ids []string) ([]StatusPageMonitor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := e.store.GetMonitors(ctx, ids)
	e.metrics.RecordDatabaseOperation("get_monitors", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load status page monitors: %w", err)
	}

	byID := make(map[string]database.Monitor, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	ordered := make([]database.Monitor, 0, len(found))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
			delete(byID, id)
		}
	}

	now := e.now()
	out := make([]StatusPageMonitor, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Server.Workers)
	for i := range ordered {
		i := i
		g.Go(func() error {
			m, err := e.statusPageMonitor(gctx, ordered[i], now)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) statusPageMonitor(ctx context.Context, monitor database.Monitor, now time.Time) (StatusPageMonitor, error) {
	windows, err := e.store.ListMaintenanceWindows(ctx, monitor.ID)
	e.metrics.RecordDatabaseOperation("list_maintenance_windows", err)
	if err != nil {
		return StatusPageMonitor{}, fmt.Errorf("failed to load maintenance windows for monitor %s: %w", monitor.ID, err)
	}

	checks, err := e.store.LatestChecks(ctx, monitor.ID, e.config.Stats.StatusPageChecks)
	e.metrics.RecordDatabaseOperation("latest_checks", err)
	if err != nil {
		return StatusPageMonitor{}, fmt.Errorf("failed to load checks for monitor %s: %w", monitor.ID, err)
	}
	stats.SortNewestFirst(checks)

	return StatusPageMonitor{
		Monitor:          monitor,
		IsMaintenance:    maintenance.CoversAny(windows, now),
		UptimePercentage: stats.UptimePercentage(checks),
		Checks:           e.chartChecks(checks, database.SortDesc, e.config.Stats.ChartPoints, true),
	}, nil
}
