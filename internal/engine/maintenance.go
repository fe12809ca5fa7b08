// internal/engine/maintenance.go
package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/maintenance"
)

// CreateMaintenanceWindow validates and stores a window for an existing
// monitor.
func (e *Engine) CreateMaintenanceWindow(ctx context.Context, window *database.MaintenanceWindow) error {
	if err := window.Validate(); err != nil {
		return err
	}
	if _, err := e.store.GetMonitor(ctx, window.MonitorID); err != nil {
		return err
	}

	err := e.store.CreateMaintenanceWindow(ctx, window)
	e.metrics.RecordDatabaseOperation("create_maintenance_window", err)
	if err != nil {
		return fmt.Errorf("failed to create maintenance window: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"monitor": window.MonitorID,
		"window":  window.ID,
		"repeat":  window.Repeat,
	}).Info("Created maintenance window")
	e.broadcast("maintenance.created", window)
	return nil
}

// MaintenanceStatus lists a monitor's windows evaluated at the current time.
func (e *Engine) MaintenanceStatus(ctx context.Context, monitorID string) ([]maintenance.Status, error) {
	if _, err := e.store.GetMonitor(ctx, monitorID); err != nil {
		return nil, err
	}

	windows, err := e.store.ListMaintenanceWindows(ctx, monitorID)
	e.metrics.RecordDatabaseOperation("list_maintenance_windows", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance windows: %w", err)
	}
	return maintenance.Evaluate(windows, e.now()), nil
}

// DeleteMaintenanceWindow removes a window by id and notifies dashboards.
func (e *Engine) DeleteMaintenanceWindow(ctx context.Context, id string) error {
	err := e.store.DeleteMaintenanceWindow(ctx, id)
	e.metrics.RecordDatabaseOperation("delete_maintenance_window", err)
	if err != nil {
		return err
	}
	e.broadcast("maintenance.deleted", map[string]string{"id": id})
	return nil
}
