// internal/stats/counters.go
package stats

import "time"

// CounterDelta is the signed change between two cumulative counter readings.
func CounterDelta(first, last uint64) int64 {
	if last >= first {
		return int64(last - first)
	}
	return -int64(first - last)
}

// CounterRate converts two cumulative readings into a per-second rate.
// It returns 0 when the elapsed time is not positive. A counter that went
// backwards has reset; the rate is clamped to 0 and reset is true.
func CounterRate(first, last uint64, tFirst, tLast time.Time) (rate float64, reset bool) {
	if last < first {
		return 0, true
	}
	elapsed := tLast.Sub(tFirst).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	return float64(last-first) / elapsed, false
}
