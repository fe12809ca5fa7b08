// internal/engine/hardware.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/stats"
)

// HardwareBucket holds the per-bucket hardware aggregates. Gauges are
// plain averages; network counters are converted to per-second rates.
type HardwareBucket struct {
	Time           time.Time          `json:"time"`
	Samples        int                `json:"samples"`
	CPUUsage       float64            `json:"cpu_usage_percent"`
	MemoryUsage    float64            `json:"memory_usage_percent"`
	CPUTemperature []float64          `json:"cpu_temperature"`
	Disks          []DiskAggregate    `json:"disks"`
	Network        []NetworkAggregate `json:"network"`
}

// DiskAggregate averages one disk, identified by its position in the sample.
type DiskAggregate struct {
	Index        int     `json:"index"`
	ReadSpeed    float64 `json:"read_speed_bytes"`
	WriteSpeed   float64 `json:"write_speed_bytes"`
	TotalBytes   float64 `json:"total_bytes"`
	FreeBytes    float64 `json:"free_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// NetworkAggregate holds per-second rates for one interface, identified by
// its position in the sample.
type NetworkAggregate struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	BytesSentPerSec   float64 `json:"bytes_sent_per_sec"`
	BytesRecvPerSec   float64 `json:"bytes_recv_per_sec"`
	PacketsSentPerSec float64 `json:"packets_sent_per_sec"`
	PacketsRecvPerSec float64 `json:"packets_recv_per_sec"`
	ErrInPerSec       float64 `json:"err_in_per_sec"`
	ErrOutPerSec      float64 `json:"err_out_per_sec"`
	DropInPerSec      float64 `json:"drop_in_per_sec"`
	DropOutPerSec     float64 `json:"drop_out_per_sec"`
	// CounterResets counts counters that went backwards in this bucket;
	// their rate is reported as 0.
	CounterResets int `json:"counter_resets"`
}

// HardwareDetails is the bucketed hardware view of a monitor over a window.
type HardwareDetails struct {
	Monitor *database.Monitor `json:"monitor"`
	Window  stats.Window      `json:"window"`
	Buckets []HardwareBucket  `json:"buckets"`
	Dropped int               `json:"dropped,omitempty"`
}

// GetHardwareDetails buckets the monitor's hardware samples in the resolved
// window. Checks without a hardware payload are ignored.
func (e *Engine) GetHardwareDetails(ctx context.Context, monitorID, dateRange string) (result *HardwareDetails, err error) {
	defer func(started time.Time) { e.metrics.ObserveQuery("hardware_details", started, err) }(time.Now())

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

	// Rates need the oldest sample first within each bucket.
	samples := make([]database.Check, 0, len(checks))
	for _, c := range checks {
		if c.Hardware != nil {
			samples = append(samples, c)
		}
	}
	stats.SortNewestFirst(samples)
	reverse(samples)

	grouping := stats.GroupByTime(samples, window.Granularity)
	buckets := stats.AggregateBuckets(grouping, hardwareBucket)

	resets := 0
	for _, b := range buckets {
		for _, n := range b.Network {
			resets += n.CounterResets
		}
	}
	e.metrics.RecordCounterResets(resets)

	return &HardwareDetails{
		Monitor: monitor,
		Window:  window,
		Buckets: buckets,
		Dropped: grouping.Dropped,
	}, nil
}

func reverse(checks []database.Check) {
	for i, j := 0, len(checks)-1; i < j; i, j = i+1, j-1 {
		checks[i], checks[j] = checks[j], checks[i]
	}
}

// hardwareBucket aggregates a bucket whose checks are ordered oldest first.
func hardwareBucket(b stats.Bucket) HardwareBucket {
	out := HardwareBucket{Time: b.Time, Samples: len(b.Checks)}
	if len(b.Checks) == 0 {
		return out
	}

	var (
		cpu, mem     float64
		temperatures [][]float64
		diskCount    int
	)
	diskReadings := make(map[int][]database.DiskSample)
	for _, c := range b.Checks {
		hw := c.Hardware
		cpu += hw.CPU.UsagePercent
		mem += hw.Memory.UsagePercent
		temperatures = append(temperatures, hw.CPU.Temperature)
		for i, d := range hw.Disks {
			diskReadings[i] = append(diskReadings[i], d)
		}
		if len(hw.Disks) > diskCount {
			diskCount = len(hw.Disks)
		}
	}

	n := float64(len(b.Checks))
	out.CPUUsage = cpu / n
	out.MemoryUsage = mem / n
	out.CPUTemperature = elementwiseMean(temperatures)

	out.Disks = make([]DiskAggregate, 0, diskCount)
	for i := 0; i < diskCount; i++ {
		out.Disks = append(out.Disks, averageDisk(i, diskReadings[i]))
	}
	out.Network = networkRates(b.Checks)
	return out
}

// elementwiseMean averages parallel arrays index by index. Arrays may
// differ in length; each index is averaged over the arrays that have it.
func elementwiseMean(series [][]float64) []float64 {
	width := 0
	for _, s := range series {
		if len(s) > width {
			width = len(s)
		}
	}

	sums := make([]float64, width)
	counts := make([]int, width)
	for _, s := range series {
		for i, v := range s {
			sums[i] += v
			counts[i]++
		}
	}
	for i := range sums {
		sums[i] /= float64(counts[i])
	}
	return sums
}

func averageDisk(index int, readings []database.DiskSample) DiskAggregate {
	agg := DiskAggregate{Index: index}
	if len(readings) == 0 {
		return agg
	}
	for _, d := range readings {
		agg.ReadSpeed += float64(d.ReadSpeedBytes)
		agg.WriteSpeed += float64(d.WriteSpeedBytes)
		agg.TotalBytes += float64(d.TotalBytes)
		agg.FreeBytes += float64(d.FreeBytes)
		agg.UsagePercent += d.UsagePercent
	}
	n := float64(len(readings))
	agg.ReadSpeed /= n
	agg.WriteSpeed /= n
	agg.TotalBytes /= n
	agg.FreeBytes /= n
	agg.UsagePercent /= n
	return agg
}

// networkRates derives per-interface rates from the first and last sample
// of each interface index in checks (oldest first).
func networkRates(checks []database.Check) []NetworkAggregate {
	width := 0
	for _, c := range checks {
		if len(c.Hardware.Network) > width {
			width = len(c.Hardware.Network)
		}
	}

	out := make([]NetworkAggregate, 0, width)
	for i := 0; i < width; i++ {
		var (
			first, last   *database.NetworkSample
			tFirst, tLast time.Time
		)
		for _, c := range checks {
			if i >= len(c.Hardware.Network) {
				continue
			}
			sample := &c.Hardware.Network[i]
			if first == nil {
				first, tFirst = sample, c.CreatedAt
			}
			last, tLast = sample, c.CreatedAt
		}

		agg := NetworkAggregate{Index: i, Name: last.Name}
		rate := func(a, b uint64) float64 {
			r, reset := stats.CounterRate(a, b, tFirst, tLast)
			if reset {
				agg.CounterResets++
			}
			return r
		}
		agg.BytesSentPerSec = rate(first.BytesSent, last.BytesSent)
		agg.BytesRecvPerSec = rate(first.BytesRecv, last.BytesRecv)
		agg.PacketsSentPerSec = rate(first.PacketsSent, last.PacketsSent)
		agg.PacketsRecvPerSec = rate(first.PacketsRecv, last.PacketsRecv)
		agg.ErrInPerSec = rate(first.ErrIn, last.ErrIn)
		agg.ErrOutPerSec = rate(first.ErrOut, last.ErrOut)
		agg.DropInPerSec = rate(first.DropIn, last.DropIn)
		agg.DropOutPerSec = rate(first.DropOut, last.DropOut)
		out = append(out, agg)
	}
	return out
}
