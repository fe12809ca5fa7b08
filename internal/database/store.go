// internal/database/store.go
package database

import (
	"context"
	"time"
)

// CheckStore reads and appends probe results.
type CheckStore interface {
	// FindChecks returns checks for a monitor within r, newest first.
	FindChecks(ctx context.Context, monitorID string, r TimeRange) ([]Check, error)
	// FindCheckFacets returns the full history and the windowed slice from
	// a single retrieval.
	FindCheckFacets(ctx context.Context, monitorID string, window TimeRange) (*CheckFacets, error)
	LatestChecks(ctx context.Context, monitorID string, limit int) ([]Check, error)
	PageChecks(ctx context.Context, q CheckQuery) (*CheckPage, error)
	CreateCheck(ctx context.Context, check *Check) error
}

// MonitorStore persists monitors and answers team queries.
type MonitorStore interface {
	GetMonitor(ctx context.Context, id string) (*Monitor, error)
	// GetMonitors resolves ids, silently skipping ones that do not exist.
	GetMonitors(ctx context.Context, ids []string) ([]Monitor, error)
	ListMonitors(ctx context.Context, filters MonitorFilters) ([]Monitor, error)
	PageMonitors(ctx context.Context, q MonitorQuery) (*MonitorPage, error)
	CountMonitors(ctx context.Context, teamID string) (*MonitorCounts, error)
	CreateMonitor(ctx context.Context, monitor *Monitor) error
	UpdateMonitor(ctx context.Context, monitor *Monitor) error
	DeleteMonitor(ctx context.Context, id string) error
}

// MaintenanceWindowStore persists maintenance windows per monitor.
type MaintenanceWindowStore interface {
	ListMaintenanceWindows(ctx context.Context, monitorID string) ([]MaintenanceWindow, error)
	CreateMaintenanceWindow(ctx context.Context, window *MaintenanceWindow) error
	DeleteMaintenanceWindow(ctx context.Context, id string) error
}

// StatusPageStore persists status pages keyed by their unique URL.
type StatusPageStore interface {
	GetStatusPageByURL(ctx context.Context, url string) (*StatusPage, error)
	ListStatusPages(ctx context.Context) ([]StatusPage, error)
	CreateStatusPage(ctx context.Context, page *StatusPage) error
	UpdateStatusPage(ctx context.Context, page *StatusPage) error
}

// Store defines the interface for database operations
type Store interface {
	CheckStore
	MonitorStore
	MaintenanceWindowStore
	StatusPageStore

	// Close the database connection
	Close() error
}

// ExtendedStore adds the retention boundary used by the external
// retention process.
type ExtendedStore interface {
	Store

	DeleteChecksBefore(ctx context.Context, cutoff time.Time) (int, error)
	DeleteChecksForMonitor(ctx context.Context, monitorID string) (int, error)
	CompactDatabase(ctx context.Context) error
	GetDatabaseStats(ctx context.Context) (*DatabaseStats, error)
}

// DatabaseStats provides information about database size and health
type DatabaseStats struct {
	Backend                string    `json:"backend"`
	TotalMonitors          int       `json:"total_monitors"`
	TotalChecks            int       `json:"total_checks"`
	TotalMaintenanceWindow int       `json:"total_maintenance_windows"`
	TotalStatusPages       int       `json:"total_status_pages"`
	DatabaseSize           int64     `json:"database_size_bytes"`
	OldestCheck            time.Time `json:"oldest_check"`
	NewestCheck            time.Time `json:"newest_check"`
}
