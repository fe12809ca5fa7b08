// internal/stats/downsample.go
package stats

import "github.com/John-MustangGT/vantage/internal/database"

// Downsample keeps every step-th item where step = ceil(n/k), starting at
// index 0. The input is returned unchanged when n <= k or k <= 0.
func Downsample[T any](items []T, k int) []T {
	n := len(items)
	if k <= 0 || n <= k {
		return items
	}

	step := (n + k - 1) / k
	out := make([]T, 0, (n+step-1)/step)
	for i := 0; i < n; i += step {
		out = append(out, items[i])
	}
	return out
}

// Rescale maps values linearly onto [low, high]. A constant series maps
// entirely to low.
func Rescale(values []float64, low, high float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	for i, v := range values {
		if span == 0 {
			out[i] = low
			continue
		}
		out[i] = low + (v-lo)/span*(high-low)
	}
	return out
}

// ChartCheck is a check prepared for charting. ResponseTime is left
// untouched; NormalizedResponseTime is set only when normalisation ran.
type ChartCheck struct {
	database.Check
	NormalizedResponseTime *float64 `json:"normalized_response_time,omitempty"`
}

// ChartChecks wraps checks without normalising them.
func ChartChecks(checks []database.Check) []ChartCheck {
	out := make([]ChartCheck, len(checks))
	for i, c := range checks {
		out[i] = ChartCheck{Check: c}
	}
	return out
}

// NormalizeChecks rescales the numeric response times of checks onto
// [low, high]. Checks without a response time are passed through.
func NormalizeChecks(checks []database.Check, low, high float64) []ChartCheck {
	out := ChartChecks(checks)

	var (
		values  []float64
		indexes []int
	)
	for i, c := range checks {
		if c.ResponseTime == nil {
			continue
		}
		values = append(values, float64(*c.ResponseTime))
		indexes = append(indexes, i)
	}

	for j, v := range Rescale(values, low, high) {
		v := v
		out[indexes[j]].NormalizedResponseTime = &v
	}
	return out
}
