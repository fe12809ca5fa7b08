// internal/stats/buckets.go
package stats

import (
	"sort"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// Bucket holds the checks whose timestamps truncate to Time.
type Bucket struct {
	Time   time.Time
	Checks []database.Check
}

// Grouping is the result of GroupByTime. Dropped counts checks skipped
// for having no usable timestamp.
type Grouping struct {
	Granularity Granularity
	Buckets     map[int64]*Bucket
	Dropped     int
}

// GroupByTime partitions checks by truncated creation time. Checks keep
// their input order inside a bucket.
func GroupByTime(checks []database.Check, g Granularity) Grouping {
	grouping := Grouping{Granularity: g, Buckets: make(map[int64]*Bucket)}
	for _, c := range checks {
		if c.CreatedAt.IsZero() || c.CreatedAt.Unix() < 0 {
			grouping.Dropped++
			continue
		}

		start := g.Truncate(c.CreatedAt)
		key := start.Unix()
		b, ok := grouping.Buckets[key]
		if !ok {
			b = &Bucket{Time: start}
			grouping.Buckets[key] = b
		}
		b.Checks = append(b.Checks, c)
	}
	return grouping
}

// Sorted returns the buckets in ascending time order.
func (g Grouping) Sorted() []Bucket {
	out := make([]Bucket, 0, len(g.Buckets))
	for _, b := range g.Buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// AggregateBuckets applies fn to each bucket in ascending time order.
// Uptime and hardware charts share this step and differ only in fn.
func AggregateBuckets[T any](g Grouping, fn func(Bucket) T) []T {
	sorted := g.Sorted()
	out := make([]T, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, fn(b))
	}
	return out
}
