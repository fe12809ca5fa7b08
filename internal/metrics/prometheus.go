// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/John-MustangGT/vantage/internal/database"
)

// Prometheus metrics
var (
	StatsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vantage_stats_query_duration_seconds",
			Help:    "Time spent assembling statistics responses",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query", "status"},
	)

	SnapshotCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_snapshot_cache_lookups_total",
			Help: "Monitor snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	ChecksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_checks_ingested_total",
			Help: "Total number of checks accepted from probers",
		},
		[]string{"monitor_type", "status"},
	)

	CounterResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_network_counter_resets_total",
			Help: "Network counter resets detected while computing hardware rates",
		},
	)

	MonitorStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vantage_monitor_up",
			Help: "Current status of monitors (1=up, 0=down)",
		},
		[]string{"monitor", "team", "type"},
	)

	ActiveMonitors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vantage_active_monitors_total",
			Help: "Number of active monitors",
		},
	)

	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_database_operations_total",
			Help: "Total database operations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vantage_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// Collector records engine activity into the package metrics.
type Collector struct {
	store database.Store
}

// NewCollector creates a collector that reads monitor state from store.
func NewCollector(store database.Store) *Collector {
	return &Collector{store: store}
}

// ObserveQuery records how long a stats query took.
func (c *Collector) ObserveQuery(query string, started time.Time, err error) {
	StatsQueryDuration.WithLabelValues(query, statusLabel(err)).Observe(time.Since(started).Seconds())
}

// RecordSnapshotLookup counts a snapshot cache hit or miss.
func (c *Collector) RecordSnapshotLookup(hit bool) {
	if hit {
		SnapshotCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	SnapshotCacheLookups.WithLabelValues("miss").Inc()
}

// RecordCheckIngested counts an ingested check and sets the monitor gauge
// to the monitor's current status.
func (c *Collector) RecordCheckIngested(monitor *database.Monitor, check *database.Check) {
	status := "down"
	if check.Status {
		status = "up"
	}
	ChecksIngested.WithLabelValues(string(monitor.Type), status).Inc()
	MonitorStatus.WithLabelValues(monitor.ID, monitor.TeamID, string(monitor.Type)).Set(boolGauge(monitor.Status))
}

// RecordCounterResets adds n observed network counter resets.
func (c *Collector) RecordCounterResets(n int) {
	if n > 0 {
		CounterResets.Add(float64(n))
	}
}

// RecordDatabaseOperation counts a store call by outcome.
func (c *Collector) RecordDatabaseOperation(operation string, err error) {
	DatabaseOperations.WithLabelValues(operation, statusLabel(err)).Inc()
}

// UpdateSystemMetrics refreshes the monitor gauges from the store.
func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	monitors, err := c.store.ListMonitors(ctx, database.MonitorFilters{})
	c.RecordDatabaseOperation("list_monitors", err)
	if err != nil {
		return err
	}

	active := 0
	for _, m := range monitors {
		if m.IsActive {
			active++
		}
		MonitorStatus.WithLabelValues(m.ID, m.TeamID, string(m.Type)).Set(boolGauge(m.Status))
	}
	ActiveMonitors.Set(float64(active))

	return nil
}

// RecordWebSocketConnection moves the connection gauge by delta.
func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
