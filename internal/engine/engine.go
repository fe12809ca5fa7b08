// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/John-MustangGT/vantage/internal/config"
	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/metrics"
	"github.com/John-MustangGT/vantage/internal/stats"
)

// Broadcaster receives engine events for connected dashboards.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Engine answers statistics queries over the check store. It holds no
// per-request state; the snapshot cache is the only shared structure.
type Engine struct {
	config      *config.Config
	store       database.ExtendedStore
	metrics     *metrics.Collector
	snapshots   *stats.SnapshotCache
	broadcaster Broadcaster
	now         func() time.Time

	// statusMu serialises the read-compare-write of monitor status on ingest.
	statusMu sync.Mutex
}

// NewEngine creates an engine over store.
func NewEngine(cfg *config.Config, store database.ExtendedStore, metricsCollector *metrics.Collector) *Engine {
	return &Engine{
		config:    cfg,
		store:     store,
		metrics:   metricsCollector,
		snapshots: stats.NewSnapshotCache(),
		now:       time.Now,
	}
}

// SetBroadcaster sets the receiver for engine events.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Snapshots() *stats.SnapshotCache {
	return e.snapshots
}

func (e *Engine) broadcast(event string, data interface{}) {
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(event, data)
	}
}

// ResolveRange turns a request token into a window, falling back to the
// configured default for unknown tokens.
func (e *Engine) ResolveRange(token string) stats.Window {
	fallback, _ := stats.ParseDateRange(e.config.Stats.DefaultDateRange, stats.RangeDay)
	if token == "" {
		return stats.Resolve(fallback, e.now())
	}

	r, ok := stats.ParseDateRange(token, fallback)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"date_range": token,
			"fallback":   fallback,
		}).Warn("Unknown date range, using default")
	}
	return stats.Resolve(r, e.now())
}

// SyncConfig writes the configured seed monitors, maintenance windows
// and status pages into the store.
func (e *Engine) SyncConfig(ctx context.Context) error {
	for _, monitorCfg := range e.config.Monitors {
		monitor := monitorCfg.ToMonitor()

		existing, err := e.store.GetMonitor(ctx, monitor.ID)
		if errors.Is(err, database.ErrNotFound) {
			if err := e.store.CreateMonitor(ctx, &monitor); err != nil {
				logrus.WithError(err).WithField("monitor", monitor.Name).Error("Failed to create monitor")
				continue
			}
			logrus.WithField("monitor", monitor.Name).Info("Created monitor")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load monitor %s: %w", monitor.ID, err)
		}

		// Status is owned by ingested checks, not by config.
		existing.Name = monitor.Name
		existing.Type = monitor.Type
		existing.URL = monitor.URL
		existing.Interval = monitor.Interval
		existing.TeamID = monitor.TeamID
		existing.IsActive = monitor.IsActive
		if err := e.store.UpdateMonitor(ctx, existing); err != nil {
			logrus.WithError(err).WithField("monitor", monitor.Name).Error("Failed to update monitor")
		}
	}

	for _, windowCfg := range e.config.MaintenanceWindows {
		window := windowCfg.ToWindow()
		if window.ID == "" {
			seed := fmt.Sprintf("%s|%s|%s", window.MonitorID, window.Name, window.Start.UTC().Format(time.RFC3339))
			window.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
		}

		existing, err := e.store.ListMaintenanceWindows(ctx, window.MonitorID)
		if err != nil {
			return fmt.Errorf("failed to list maintenance windows: %w", err)
		}
		if containsWindow(existing, window.ID) {
			continue
		}
		if err := e.store.CreateMaintenanceWindow(ctx, &window); err != nil {
			logrus.WithError(err).WithField("monitor", window.MonitorID).Error("Failed to create maintenance window")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"monitor": window.MonitorID,
			"window":  window.Name,
		}).Info("Created maintenance window")
	}

	for _, pageCfg := range e.config.StatusPages {
		page := pageCfg.ToStatusPage()

		existing, err := e.store.GetStatusPageByURL(ctx, page.URL)
		if errors.Is(err, database.ErrNotFound) {
			if err := e.store.CreateStatusPage(ctx, &page); err != nil {
				logrus.WithError(err).WithField("url", page.URL).Error("Failed to create status page")
				continue
			}
			logrus.WithField("url", page.URL).Info("Created status page")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load status page %s: %w", page.URL, err)
		}

		page.ID = existing.ID
		page.CreatedAt = existing.CreatedAt
		if err := e.store.UpdateStatusPage(ctx, &page); err != nil {
			logrus.WithError(err).WithField("url", page.URL).Error("Failed to update status page")
		}
	}

	return nil
}

func containsWindow(windows []database.MaintenanceWindow, id string) bool {
	for _, w := range windows {
		if w.ID == id {
			return true
		}
	}
	return false
}

// IngestCheck is the boundary through which probers append results. It
// stores the check, updates the monitor's current status and drops the
// monitor's cached snapshot.
func (e *Engine) IngestCheck(ctx context.Context, check *database.Check) error {
	if check.MonitorID == "" {
		return fmt.Errorf("%w: monitor_id is required", database.ErrInvalid)
	}

	if _, err := e.store.GetMonitor(ctx, check.MonitorID); err != nil {
		return err
	}

	err := e.store.CreateCheck(ctx, check)
	e.metrics.RecordDatabaseOperation("create_check", err)
	if err != nil {
		return fmt.Errorf("failed to store check: %w", err)
	}
	e.snapshots.Invalidate(check.MonitorID)

	monitor, err := e.applyStatus(ctx, check)
	if err != nil {
		return err
	}

	e.metrics.RecordCheckIngested(monitor, check)
	e.broadcast("check.ingested", map[string]interface{}{
		"monitor_id": check.MonitorID,
		"check":      check,
	})

	return nil
}

// applyStatus moves the monitor's current status to the check's, unless a
// newer check is already stored. Backfilled checks never change status.
func (e *Engine) applyStatus(ctx context.Context, check *database.Check) (*database.Monitor, error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	monitor, err := e.store.GetMonitor(ctx, check.MonitorID)
	if err != nil {
		return nil, err
	}
	if monitor.Status == check.Status {
		return monitor, nil
	}

	latest, err := e.store.LatestChecks(ctx, check.MonitorID, 1)
	e.metrics.RecordDatabaseOperation("latest_checks", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest check: %w", err)
	}
	if len(latest) > 0 && latest[0].CreatedAt.After(check.CreatedAt) {
		logrus.WithFields(logrus.Fields{
			"monitor":    monitor.ID,
			"check_time": check.CreatedAt,
			"latest":     latest[0].CreatedAt,
		}).Debug("Backfilled check, keeping current status")
		return monitor, nil
	}

	monitor.Status = check.Status
	err = e.store.UpdateMonitor(ctx, monitor)
	e.metrics.RecordDatabaseOperation("update_monitor", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update monitor status: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"monitor": monitor.ID,
		"status":  check.Status,
	}).Info("Monitor status changed")

	return monitor, nil
}

// Snapshot returns the monitor's cached lifetime summary, deriving it from
// the full check history on a miss.
func (e *Engine) Snapshot(ctx context.Context, monitorID string) (stats.MonitorStatsSnapshot, error) {
	if !e.config.Stats.DisableSnapshotCache {
		if snap, ok := e.snapshots.Get(monitorID); ok {
			e.metrics.RecordSnapshotLookup(true)
			return snap, nil
		}
		e.metrics.RecordSnapshotLookup(false)
	}

	generation := e.snapshots.Generation(monitorID)
	checks, err := e.store.FindChecks(ctx, monitorID, database.TimeRange{})
	if err != nil {
		return stats.MonitorStatsSnapshot{}, fmt.Errorf("failed to load checks: %w", err)
	}
	stats.SortNewestFirst(checks)

	snap := stats.SnapshotOf(monitorID, checks)
	if !e.config.Stats.DisableSnapshotCache {
		e.snapshots.Set(monitorID, generation, snap)
	}
	return snap, nil
}

// PurgeChecksBefore deletes history older than cutoff on behalf of the
// external retention process.
func (e *Engine) PurgeChecksBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted, err := e.store.DeleteChecksBefore(ctx, cutoff)
	e.metrics.RecordDatabaseOperation("delete_checks_before", err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge checks: %w", err)
	}
	e.snapshots.InvalidateAll()

	logrus.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"deleted": deleted,
	}).Info("Purged old checks")
	e.broadcast("checks.purged", map[string]interface{}{"deleted": deleted})

	return deleted, nil
}

// PurgeMonitorChecks deletes one monitor's history.
func (e *Engine) PurgeMonitorChecks(ctx context.Context, monitorID string) (int, error) {
	if _, err := e.store.GetMonitor(ctx, monitorID); err != nil {
		return 0, err
	}

	deleted, err := e.store.DeleteChecksForMonitor(ctx, monitorID)
	e.metrics.RecordDatabaseOperation("delete_checks_for_monitor", err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge checks for monitor %s: %w", monitorID, err)
	}
	e.snapshots.Invalidate(monitorID)
	e.broadcast("checks.purged", map[string]interface{}{"monitor_id": monitorID, "deleted": deleted})

	return deleted, nil
}

// CompactDatabase compacts the underlying store.
func (e *Engine) CompactDatabase(ctx context.Context) error {
	err := e.store.CompactDatabase(ctx)
	e.metrics.RecordDatabaseOperation("compact", err)
	return err
}

// DatabaseStats reports store size and check counts.
func (e *Engine) DatabaseStats(ctx context.Context) (*database.DatabaseStats, error) {
	dbStats, err := e.store.GetDatabaseStats(ctx)
	e.metrics.RecordDatabaseOperation("database_stats", err)
	return dbStats, err
}
