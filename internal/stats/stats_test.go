package stats

import (
	"math"
	"testing"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

var base = time.Date(2024, 3, 10, 12, 30, 45, 0, time.UTC)

func rt(ms int64) *int64 { return &ms }

// newestFirst builds n checks one minute apart, newest first.
func newestFirst(n int, status func(i int) bool) []database.Check {
	checks := make([]database.Check, n)
	for i := range checks {
		checks[i] = database.Check{
			ID:           string(rune('a' + i%26)),
			MonitorID:    "m1",
			CreatedAt:    base.Add(-time.Duration(i) * time.Minute),
			Status:       status(i),
			ResponseTime: rt(int64(100 + i)),
		}
	}
	return checks
}

func allUp(int) bool { return true }

// --------------- date ranges ---------------

func TestResolve_Ranges(t *testing.T) {
	cases := []struct {
		r     DateRange
		start time.Time
		gran  Granularity
	}{
		{RangeRecent, base.Add(-2 * time.Hour), Minute},
		{RangeDay, base.Add(-24 * time.Hour), Hour},
		{RangeWeek, base.Add(-7 * 24 * time.Hour), Hour},
		{RangeMonth, time.Date(2024, 2, 10, 12, 30, 45, 0, time.UTC), Day},
		{RangeAll, time.Unix(0, 0).UTC(), Day},
	}

	for _, tc := range cases {
		w := Resolve(tc.r, base)
		if !w.Start.Equal(tc.start) {
			t.Errorf("%s: start = %v, want %v", tc.r, w.Start, tc.start)
		}
		if !w.End.Equal(base) {
			t.Errorf("%s: end = %v, want %v", tc.r, w.End, base)
		}
		if w.Granularity != tc.gran {
			t.Errorf("%s: granularity = %s, want %s", tc.r, w.Granularity, tc.gran)
		}
	}
}

func TestResolve_UnknownDefaultsToDay(t *testing.T) {
	w := Resolve(DateRange("fortnight"), base)
	if w.Range != RangeDay || w.Granularity != Hour {
		t.Errorf("Resolve(fortnight) = %+v, want day/hour", w)
	}
}

func TestParseDateRange(t *testing.T) {
	if r, ok := ParseDateRange("week", RangeDay); !ok || r != RangeWeek {
		t.Errorf("ParseDateRange(week) = %s, %v", r, ok)
	}
	if r, ok := ParseDateRange("yesterday", RangeMonth); ok || r != RangeMonth {
		t.Errorf("ParseDateRange(yesterday) = %s, %v, want month, false", r, ok)
	}
}

func TestGranularity_Truncate(t *testing.T) {
	if got := Minute.Truncate(base); !got.Equal(time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)) {
		t.Errorf("minute truncate = %v", got)
	}
	if got := Hour.Truncate(base); !got.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("hour truncate = %v", got)
	}
	if got := Day.Truncate(base); !got.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day truncate = %v", got)
	}
}

// --------------- downsampling ---------------

func TestDownsample_UnchangedWhenShort(t *testing.T) {
	in := []int{1, 2, 3}
	if got := Downsample(in, 5); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
	if got := Downsample(in, 0); len(got) != 3 {
		t.Errorf("k=0: len = %d, want 3", len(got))
	}
	if got := Downsample(in, 3); len(got) != 3 {
		t.Errorf("k=n: len = %d, want 3", len(got))
	}
}

func TestDownsample_Stride(t *testing.T) {
	for n := 1; n <= 200; n++ {
		in := make([]int, n)
		for i := range in {
			in[i] = i
		}
		for k := 1; k < n; k++ {
			got := Downsample(in, k)
			step := (n + k - 1) / k
			if len(got) > k {
				t.Fatalf("n=%d k=%d: len = %d exceeds k", n, k, len(got))
			}
			if want := (n + step - 1) / step; len(got) != want {
				t.Fatalf("n=%d k=%d: len = %d, want %d", n, k, len(got), want)
			}
			if got[0] != 0 {
				t.Fatalf("n=%d k=%d: first = %d, want 0", n, k, got[0])
			}
			for i := 1; i < len(got); i++ {
				if got[i]-got[i-1] != step {
					t.Fatalf("n=%d k=%d: not evenly strided: %v", n, k, got)
				}
			}
		}
	}
}

func TestDownsample_SeventyThreeToTwentyFive(t *testing.T) {
	checks := newestFirst(73, allUp)
	got := Downsample(checks, 25)

	if len(got) > 25 {
		t.Errorf("len = %d, want <= 25", len(got))
	}
	if len(got) != 25 {
		t.Errorf("len = %d, want 25 (step 3)", len(got))
	}
	if got[0].CreatedAt != checks[0].CreatedAt {
		t.Error("first check not kept")
	}
	if got[1].CreatedAt != checks[3].CreatedAt {
		t.Errorf("second kept check = %v, want index 3", got[1].CreatedAt)
	}
}

func TestRescale_Bounds(t *testing.T) {
	got := Rescale([]float64{50, 10, 30, 90}, 1, 100)
	want := []float64{50.5, 1, 25.75, 100}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("Rescale[%d] = %v, want %v", i, got[i], want[i])
		}
		if got[i] < 1 || got[i] > 100 {
			t.Errorf("Rescale[%d] = %v out of bounds", i, got[i])
		}
	}
}

func TestRescale_ConstantMapsToLow(t *testing.T) {
	for _, v := range Rescale([]float64{7, 7, 7}, 1, 100) {
		if v != 1 {
			t.Errorf("constant series value = %v, want 1", v)
		}
	}
	if got := Rescale(nil, 1, 100); len(got) != 0 {
		t.Errorf("empty input len = %d", len(got))
	}
}

func TestNormalizeChecks_KeepsOriginal(t *testing.T) {
	checks := []database.Check{
		{ResponseTime: rt(200)},
		{ResponseTime: nil},
		{ResponseTime: rt(100)},
	}
	got := NormalizeChecks(checks, 1, 100)

	if *got[0].ResponseTime != 200 {
		t.Errorf("original response time changed: %d", *got[0].ResponseTime)
	}
	if got[0].NormalizedResponseTime == nil || *got[0].NormalizedResponseTime != 100 {
		t.Errorf("normalized[0] = %v, want 100", got[0].NormalizedResponseTime)
	}
	if got[1].NormalizedResponseTime != nil {
		t.Error("check without response time should not be normalized")
	}
	if *got[2].NormalizedResponseTime != 1 {
		t.Errorf("normalized[2] = %v, want 1", *got[2].NormalizedResponseTime)
	}
}

// --------------- counters ---------------

func TestCounterRate(t *testing.T) {
	t0 := base
	rate, reset := CounterRate(100, 1100, t0, t0.Add(1000*time.Millisecond))
	if rate != 1000 || reset {
		t.Errorf("rate = %v reset = %v, want 1000 false", rate, reset)
	}

	if rate, _ := CounterRate(100, 1100, t0, t0); rate != 0 {
		t.Errorf("zero elapsed rate = %v, want 0", rate)
	}
	if rate, _ := CounterRate(100, 1100, t0, t0.Add(-time.Second)); rate != 0 {
		t.Errorf("negative elapsed rate = %v, want 0", rate)
	}
}

func TestCounterRate_ResetClampsToZero(t *testing.T) {
	rate, reset := CounterRate(5000, 200, base, base.Add(10*time.Second))
	if rate != 0 {
		t.Errorf("rate = %v, want 0", rate)
	}
	if !reset {
		t.Error("expected reset to be reported")
	}
	if d := CounterDelta(5000, 200); d != -4800 {
		t.Errorf("CounterDelta = %d, want -4800", d)
	}
}

// --------------- buckets ---------------

func TestGroupByTime_Hourly(t *testing.T) {
	checks := []database.Check{
		{ID: "a", CreatedAt: time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC)},
		{ID: "b", CreatedAt: time.Date(2024, 3, 10, 13, 59, 59, 0, time.UTC)},
		{ID: "c", CreatedAt: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)},
		{ID: "zero"},
	}

	g := GroupByTime(checks, Hour)
	if len(g.Buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(g.Buckets))
	}
	if g.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", g.Dropped)
	}

	sorted := g.Sorted()
	if !sorted[0].Time.Equal(time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("first bucket = %v", sorted[0].Time)
	}
	if len(sorted[0].Checks) != 2 || sorted[0].Checks[0].ID != "b" {
		t.Errorf("first bucket checks = %+v", sorted[0].Checks)
	}
}

func TestGroupByTime_DailyUsesCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	checks := []database.Check{
		// 01:00 local is 23:00 UTC on the previous day.
		{CreatedAt: time.Date(2024, 3, 11, 1, 0, 0, 0, loc)},
		{CreatedAt: time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)},
	}

	g := GroupByTime(checks, Day)
	if len(g.Buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(g.Buckets))
	}
}

func TestAggregateBuckets_Ordered(t *testing.T) {
	checks := newestFirst(180, allUp)
	counts := AggregateBuckets(GroupByTime(checks, Hour), func(b Bucket) int { return len(b.Checks) })

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 180 {
		t.Errorf("total = %d, want 180", total)
	}
	if len(counts) != 4 {
		t.Errorf("buckets = %d, want 4", len(counts))
	}
}

// --------------- aggregates ---------------

func TestUptimePercentage(t *testing.T) {
	if got := UptimePercentage(nil); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := UptimePercentage([]database.Check{{Status: true}}); got != 100 {
		t.Errorf("one up = %v, want 100", got)
	}
	if got := UptimePercentage([]database.Check{{Status: true}, {Status: false}}); got != 50 {
		t.Errorf("half = %v, want 50", got)
	}
}

func TestUptimeDuration_NoDownChecks(t *testing.T) {
	checks := newestFirst(10, allUp)
	now := base.Add(30 * time.Second)

	want := now.Sub(checks[9].CreatedAt)
	if got := UptimeDuration(checks, now); got != want {
		t.Errorf("UptimeDuration = %v, want %v", got, want)
	}
}

func TestUptimeDuration_WithDownCheck(t *testing.T) {
	checks := newestFirst(10, func(i int) bool { return i != 4 && i != 7 })
	now := base.Add(30 * time.Second)

	want := checks[0].CreatedAt.Sub(checks[4].CreatedAt)
	if got := UptimeDuration(checks, now); got != want {
		t.Errorf("UptimeDuration = %v, want %v", got, want)
	}
	if got := UptimeDuration(nil, now); got != 0 {
		t.Errorf("empty UptimeDuration = %v, want 0", got)
	}
}

func TestAggregates_Empty(t *testing.T) {
	if LastChecked(nil, base) != 0 || LatestResponseTime(nil) != 0 ||
		AverageResponseTime(nil) != 0 || IncidentCount(nil) != 0 {
		t.Error("aggregates over empty series should be zero")
	}
	if s := Summarize(nil, base); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v", s)
	}
}

func TestAverageResponseTime_SkipsMissing(t *testing.T) {
	checks := []database.Check{{ResponseTime: rt(100)}, {}, {ResponseTime: rt(300)}}
	if got := AverageResponseTime(checks); got != 200 {
		t.Errorf("AverageResponseTime = %v, want 200", got)
	}
}

func TestSummarize_MatchesIndividualFunctions(t *testing.T) {
	checks := newestFirst(50, func(i int) bool { return i%7 != 3 })
	checks[0].ResponseTime = nil
	now := base.Add(90 * time.Second)

	s := Summarize(checks, now)
	if s.UptimePercentage != UptimePercentage(checks) {
		t.Errorf("uptime %% = %v, want %v", s.UptimePercentage, UptimePercentage(checks))
	}
	if s.Incidents != IncidentCount(checks) {
		t.Errorf("incidents = %d, want %d", s.Incidents, IncidentCount(checks))
	}
	if s.AverageResponseTime != AverageResponseTime(checks) {
		t.Errorf("avg = %v, want %v", s.AverageResponseTime, AverageResponseTime(checks))
	}
	if s.LatestResponseTime != LatestResponseTime(checks) {
		t.Errorf("latest = %d, want %d", s.LatestResponseTime, LatestResponseTime(checks))
	}
	if s.LastChecked != LastChecked(checks, now) {
		t.Errorf("last checked = %v, want %v", s.LastChecked, LastChecked(checks, now))
	}
	if s.UptimeDuration != UptimeDuration(checks, now) {
		t.Errorf("uptime duration = %v, want %v", s.UptimeDuration, UptimeDuration(checks, now))
	}
}

func TestSortNewestFirst(t *testing.T) {
	checks := []database.Check{
		{ID: "old", CreatedAt: base.Add(-time.Hour)},
		{ID: "new", CreatedAt: base},
		{ID: "mid", CreatedAt: base.Add(-time.Minute)},
	}
	SortNewestFirst(checks)
	if checks[0].ID != "new" || checks[2].ID != "old" {
		t.Errorf("order = %s %s %s", checks[0].ID, checks[1].ID, checks[2].ID)
	}
}

// --------------- snapshot cache ---------------

func TestSnapshotCache_InvalidateOnIngest(t *testing.T) {
	c := NewSnapshotCache()
	gen := c.Generation("m1")
	if !c.Set("m1", gen, MonitorStatsSnapshot{MonitorID: "m1", TotalChecks: 3}) {
		t.Fatal("Set rejected fresh generation")
	}
	if snap, ok := c.Get("m1"); !ok || snap.TotalChecks != 3 {
		t.Fatalf("Get = %+v, %v", snap, ok)
	}

	c.Invalidate("m1")
	if _, ok := c.Get("m1"); ok {
		t.Error("snapshot still cached after Invalidate")
	}
}

func TestSnapshotCache_StaleSetRejected(t *testing.T) {
	c := NewSnapshotCache()
	gen := c.Generation("m1")
	c.Invalidate("m1")
	if c.Set("m1", gen, MonitorStatsSnapshot{}) {
		t.Error("Set accepted a generation taken before Invalidate")
	}

	gen = c.Generation("m2")
	c.InvalidateAll()
	if c.Set("m2", gen, MonitorStatsSnapshot{}) {
		t.Error("Set accepted a generation taken before InvalidateAll")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestSnapshotOf(t *testing.T) {
	checks := newestFirst(4, func(i int) bool { return i != 1 })
	snap := SnapshotOf("m1", checks)
	if snap.TotalChecks != 4 || snap.UptimePercentage != 75 {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.LastCheckTimestamp.Equal(base) {
		t.Errorf("last check = %v, want %v", snap.LastCheckTimestamp, base)
	}
	if snap.AvgResponseTime != 101.5 {
		t.Errorf("avg = %v, want 101.5", snap.AvgResponseTime)
	}
}
