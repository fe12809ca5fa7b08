// internal/database/models.go
package database

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a monitor, window or status page does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when a record fails validation on write.
	ErrInvalid = errors.New("invalid record")
)

type MonitorType string

const (
	MonitorHTTP      MonitorType = "http"
	MonitorPing      MonitorType = "ping"
	MonitorPort      MonitorType = "port"
	MonitorDocker    MonitorType = "docker"
	MonitorGame      MonitorType = "game"
	MonitorHardware  MonitorType = "hardware"
	MonitorPageSpeed MonitorType = "pagespeed"
)

// Valid reports whether t is one of the known monitor types.
func (t MonitorType) Valid() bool {
	switch t {
	case MonitorHTTP, MonitorPing, MonitorPort, MonitorDocker, MonitorGame, MonitorHardware, MonitorPageSpeed:
		return true
	}
	return false
}

type Monitor struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      MonitorType   `json:"type"`
	URL       string        `json:"url"`
	Interval  time.Duration `json:"interval"`
	IsActive  bool          `json:"is_active"`
	Status    bool          `json:"status"`
	TeamID    string        `json:"team_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Check is a single probe result. Checks are append-only.
type Check struct {
	ID           string           `json:"id"`
	MonitorID    string           `json:"monitor_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       bool             `json:"status"`
	ResponseTime *int64           `json:"response_time,omitempty"`
	StatusCode   int              `json:"status_code,omitempty"`
	Message      string           `json:"message,omitempty"`
	Hardware     *HardwarePayload `json:"hardware,omitempty"`
}

type HardwarePayload struct {
	CPU     CPUSample       `json:"cpu"`
	Memory  MemorySample    `json:"memory"`
	Disks   []DiskSample    `json:"disk"`
	Host    HostInfo        `json:"host"`
	Network []NetworkSample `json:"net"`
}

type CPUSample struct {
	PhysicalCores int       `json:"physical_core"`
	LogicalCores  int       `json:"logical_core"`
	Frequency     float64   `json:"frequency"`
	Temperature   []float64 `json:"temperature"`
	UsagePercent  float64   `json:"usage_percent"`
}

type MemorySample struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	UsagePercent   float64 `json:"usage_percent"`
}

type DiskSample struct {
	ReadSpeedBytes  float64 `json:"read_speed_bytes"`
	WriteSpeedBytes float64 `json:"write_speed_bytes"`
	TotalBytes      uint64  `json:"total_bytes"`
	FreeBytes       uint64  `json:"free_bytes"`
	UsagePercent    float64 `json:"usage_percent"`
}

type HostInfo struct {
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
}

// NetworkSample holds cumulative interface counters as reported by the agent.
type NetworkSample struct {
	Name        string `json:"name"`
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"err_in"`
	ErrOut      uint64 `json:"err_out"`
	DropIn      uint64 `json:"drop_in"`
	DropOut     uint64 `json:"drop_out"`
}

// MaintenanceWindow suppresses a monitor between Start and End. A positive
// Repeat (milliseconds) makes the window recur every Repeat after Start.
type MaintenanceWindow struct {
	ID        string    `json:"id"`
	MonitorID string    `json:"monitor_id"`
	Name      string    `json:"name"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Repeat    int64     `json:"repeat"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks End > Start and, for recurring windows, that one
// occurrence fits inside the repeat interval.
func (w *MaintenanceWindow) Validate() error {
	if w.MonitorID == "" {
		return fmt.Errorf("%w: monitor_id is required", ErrInvalid)
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalid)
	}
	if w.Repeat < 0 {
		return fmt.Errorf("%w: repeat must not be negative", ErrInvalid)
	}
	if w.Repeat > 0 && w.End.Sub(w.Start) > time.Duration(w.Repeat)*time.Millisecond {
		return fmt.Errorf("%w: window duration exceeds repeat interval", ErrInvalid)
	}
	return nil
}

type StatusPage struct {
	ID          string            `json:"id"`
	CompanyName string            `json:"company_name"`
	URL         string            `json:"url"`
	Monitors    []string          `json:"monitors"`
	SubMonitors []string          `json:"sub_monitors,omitempty"`
	IsPublished bool              `json:"is_published"`
	Timezone    string            `json:"timezone"`
	Options     StatusPageOptions `json:"options"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type StatusPageOptions struct {
	Color                string `json:"color"`
	Theme                string `json:"theme"`
	Logo                 string `json:"logo,omitempty"`
	ShowCharts           bool   `json:"show_charts"`
	ShowUptimePercentage bool   `json:"show_uptime_percentage"`
}

// TimeRange bounds check retrieval. A zero Start or End is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range, inclusive.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// CheckFacets is the combined result of a single retrieval: the full
// history and the slice inside the requested window, both newest first.
type CheckFacets struct {
	All      []Check
	Windowed []Check
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type CheckQuery struct {
	MonitorID string
	Range     TimeRange
	Status    *bool
	Order     SortOrder
	Page      int
	PerPage   int
}

type CheckPage struct {
	Items []Check `json:"checks"`
	Total int     `json:"total"`
}

type MonitorFilters struct {
	TeamID string
	Types  []MonitorType
	Active *bool
}

// MonitorQuery drives the team listing: filtering, sorting and paging are
// applied by the store so the total is counted independently of the page.
type MonitorQuery struct {
	TeamID  string
	Types   []MonitorType
	Search  string
	Active  *bool
	Status  *bool
	Field   string
	Order   SortOrder
	Page    int
	PerPage int
}

type MonitorPage struct {
	Items []Monitor `json:"monitors"`
	Total int       `json:"total"`
}

// MonitorCounts summarises a team's monitors.
type MonitorCounts struct {
	Total  int `json:"total"`
	Up     int `json:"up"`
	Down   int `json:"down"`
	Paused int `json:"paused"`
}
