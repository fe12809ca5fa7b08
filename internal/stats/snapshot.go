// internal/stats/snapshot.go
package stats

import (
	"sync"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// MonitorStatsSnapshot is a cached summary of a monitor's full history.
type MonitorStatsSnapshot struct {
	MonitorID          string    `json:"monitor_id"`
	AvgResponseTime    float64   `json:"avg_response_time"`
	UptimePercentage   float64   `json:"uptime_percentage"`
	TotalChecks        int       `json:"total_checks"`
	LastCheckTimestamp time.Time `json:"last_check_timestamp"`
}

// SnapshotOf derives a snapshot from checks ordered newest first.
func SnapshotOf(monitorID string, checks []database.Check) MonitorStatsSnapshot {
	s := Summarize(checks, time.Now())
	return MonitorStatsSnapshot{
		MonitorID:          monitorID,
		AvgResponseTime:    s.AverageResponseTime,
		UptimePercentage:   s.UptimePercentage,
		TotalChecks:        s.Total,
		LastCheckTimestamp: s.LastCheckAt,
	}
}

type snapshotEntry struct {
	snapshot   MonitorStatsSnapshot
	generation uint64
	valid      bool
}

// SnapshotCache is a materialized view over the check store. Entries have
// no TTL and are dropped only when a check for the monitor is ingested or
// history is purged, so a snapshot is never older than the newest check.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]*snapshotEntry
	global  uint64
	seq     uint64
}

// NewSnapshotCache returns an empty cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{entries: make(map[string]*snapshotEntry)}
}

// Get returns the cached snapshot for a monitor.
func (c *SnapshotCache) Get(monitorID string) (MonitorStatsSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[monitorID]
	if !ok || !e.valid {
		return MonitorStatsSnapshot{}, false
	}
	return e.snapshot, true
}

// Generation returns a token to pass to Set. Take it before reading the
// store so a concurrent invalidation wins over the stale result.
func (c *SnapshotCache) Generation(monitorID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[monitorID]; ok {
		return e.generation
	}
	return c.global
}

// Set stores snap unless the monitor was invalidated since generation was
// taken. It reports whether the snapshot was stored.
func (c *SnapshotCache) Set(monitorID string, generation uint64, snap MonitorStatsSnapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[monitorID]
	if !ok {
		if generation != c.global {
			return false
		}
		e = &snapshotEntry{generation: generation}
		c.entries[monitorID] = e
	}
	if e.generation != generation {
		return false
	}
	e.snapshot = snap
	e.valid = true
	return true
}

// Invalidate drops a monitor's snapshot.
func (c *SnapshotCache) Invalidate(monitorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[monitorID]
	if !ok {
		e = &snapshotEntry{generation: c.global}
		c.entries[monitorID] = e
	}
	c.seq++
	e.generation = c.seq
	e.valid = false
	e.snapshot = MonitorStatsSnapshot{}
}

// InvalidateAll drops every snapshot.
func (c *SnapshotCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.global = c.seq
	c.entries = make(map[string]*snapshotEntry)
}

// Len reports how many valid snapshots are cached.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if e.valid {
			n++
		}
	}
	return n
}
