// internal/engine/team.go
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/stats"
)

// TeamQuery filters, sorts and pages a team's monitors. Limit caps the
// recent checks attached to each monitor; Page is zero based.
type TeamQuery struct {
	Limit       int
	Types       []database.MonitorType
	Page        int
	RowsPerPage int
	Filter      string
	Field       string
	Order       database.SortOrder
	Status      *bool
	Active      *bool
}

// MonitorWithChecks is a monitor plus its chart series and lifetime snapshot.
type MonitorWithChecks struct {
	database.Monitor
	Checks   []stats.ChartCheck          `json:"checks"`
	Snapshot *stats.MonitorStatsSnapshot `json:"snapshot,omitempty"`
}

// TeamMonitors is the team dashboard payload. Summary and Monitors cover
// the whole team; FilteredMonitors is the requested page.
type TeamMonitors struct {
	Summary          database.MonitorCounts `json:"summary"`
	Monitors         []database.Monitor     `json:"monitors"`
	FilteredMonitors []MonitorWithChecks    `json:"filteredMonitors"`
	FilteredCount    int                    `json:"filteredCount"`
}

// GetMonitorsByTeam returns the team summary, the team's monitors of the
// requested types and one filtered page with recent checks attached.
func (e *Engine) GetMonitorsByTeam(ctx context.Context, teamID string, q TeamQuery) (result *TeamMonitors, err error) {
	defer func(started time.Time) { e.metrics.ObserveQuery("team_monitors", started, err) }(time.Now())

	counts, err := e.store.CountMonitors(ctx, teamID)
	e.metrics.RecordDatabaseOperation("count_monitors", err)
	if err != nil {
		return nil, fmt.Errorf("failed to count monitors: %w", err)
	}

	all, err := e.store.ListMonitors(ctx, database.MonitorFilters{TeamID: teamID, Types: q.Types})
	e.metrics.RecordDatabaseOperation("list_monitors", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}

	page, err := e.store.PageMonitors(ctx, database.MonitorQuery{
		TeamID:  teamID,
		Types:   q.Types,
		Search:  q.Filter,
		Active:  q.Active,
		Status:  q.Status,
		Field:   q.Field,
		Order:   q.Order,
		Page:    q.Page,
		PerPage: q.RowsPerPage,
	})
	e.metrics.RecordDatabaseOperation("page_monitors", err)
	if err != nil {
		return nil, fmt.Errorf("failed to page monitors: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = e.config.Stats.TeamCheckLimit
	}

	filtered := make([]MonitorWithChecks, len(page.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Server.Workers)
	for i := range page.Items {
		i := i
		g.Go(func() error {
			m, err := e.monitorWithChecks(gctx, page.Items[i], limit)
			if err != nil {
				return err
			}
			filtered[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &TeamMonitors{
		Summary:          *counts,
		Monitors:         all,
		FilteredMonitors: filtered,
		FilteredCount:    page.Total,
	}, nil
}

func (e *Engine) monitorWithChecks(ctx context.Context, monitor database.Monitor, limit int) (MonitorWithChecks, error) {
	checks, err := e.store.LatestChecks(ctx, monitor.ID, limit)
	e.metrics.RecordDatabaseOperation("latest_checks", err)
	if err != nil {
		return MonitorWithChecks{}, fmt.Errorf("failed to load checks for monitor %s: %w", monitor.ID, err)
	}
	stats.SortNewestFirst(checks)

	snap, err := e.Snapshot(ctx, monitor.ID)
	if err != nil {
		return MonitorWithChecks{}, err
	}

	return MonitorWithChecks{
		Monitor:  monitor,
		Checks:   e.chartChecks(checks, database.SortDesc, e.config.Stats.ChartPoints, true),
		Snapshot: &snap,
	}, nil
}
