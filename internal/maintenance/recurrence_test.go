package maintenance

import (
	"testing"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

var t0 = time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)

const day = int64(24 * time.Hour / time.Millisecond)

func daily() database.MaintenanceWindow {
	return database.MaintenanceWindow{
		MonitorID: "m1",
		Start:     t0,
		End:       t0.Add(10 * time.Minute),
		Repeat:    day,
		Active:    true,
	}
}

func TestCovers_Recurring(t *testing.T) {
	w := daily()

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"next day inside", t0.Add(24*time.Hour + 5*time.Minute), true},
		{"next day after", t0.Add(24*time.Hour + 15*time.Minute), false},
		{"before start", t0.Add(-time.Minute), false},
		{"first occurrence", t0.Add(3 * time.Minute), true},
		{"boundary end", t0.Add(10 * time.Minute), true},
		{"far future", t0.Add(400*24*time.Hour + 9*time.Minute), true},
	}

	for _, tc := range cases {
		if got := Covers(w, tc.now); got != tc.want {
			t.Errorf("%s: Covers = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCovers_OneShot(t *testing.T) {
	w := daily()
	w.Repeat = 0

	if !Covers(w, t0) || !Covers(w, t0.Add(10*time.Minute)) {
		t.Error("one-shot window should cover its bounds")
	}
	if Covers(w, t0.Add(24*time.Hour+5*time.Minute)) {
		t.Error("one-shot window should not recur")
	}
}

func TestCovers_Inactive(t *testing.T) {
	w := daily()
	w.Active = false
	if Covers(w, t0.Add(5*time.Minute)) {
		t.Error("inactive window should never cover")
	}
}

func TestNextOccurrence_AdvancesWholeCycles(t *testing.T) {
	w := daily()
	now := t0.Add(3*24*time.Hour + time.Hour)

	occ, inside, ok := NextOccurrence(w, now)
	if !ok || inside {
		t.Fatalf("ok = %v inside = %v, want true false", ok, inside)
	}
	if want := t0.Add(4 * 24 * time.Hour); !occ.Start.Equal(want) {
		t.Errorf("next start = %v, want %v", occ.Start, want)
	}
	if !occ.End.Equal(occ.Start.Add(10 * time.Minute)) {
		t.Errorf("next end = %v", occ.End)
	}
}

func TestNextOccurrence_AgreesWithCovers(t *testing.T) {
	w := daily()
	for m := -30; m < 3*24*60; m += 7 {
		now := t0.Add(time.Duration(m) * time.Minute)
		_, inside, _ := NextOccurrence(w, now)
		if inside != Covers(w, now) {
			t.Fatalf("minute %d: NextOccurrence inside = %v, Covers = %v", m, inside, Covers(w, now))
		}
	}
}

func TestDescribe(t *testing.T) {
	w := daily()

	if got := Describe(w, t0.Add(4*time.Minute)); got != "In maintenance window (ends in 6m)" {
		t.Errorf("inside: %q", got)
	}
	if got := Describe(w, t0.Add(-90*time.Minute)); got != "Next window in 1h 30m" {
		t.Errorf("before: %q", got)
	}
	if got := Describe(w, t0.Add(2*time.Hour)); got != "Next window in 22h" {
		t.Errorf("between: %q", got)
	}

	w.Repeat = 0
	if got := Describe(w, t0.Add(time.Hour)); got != "No upcoming window" {
		t.Errorf("expired: %q", got)
	}
	w.Active = false
	if got := Describe(w, t0); got != "Window inactive" {
		t.Errorf("inactive: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		45 * time.Second:              "45s",
		12 * time.Minute:              "12m",
		3*time.Hour + 5*time.Minute:   "3h 5m",
		2 * time.Hour:                 "2h",
		50*time.Hour + 10*time.Minute: "2d 2h",
		72 * time.Hour:                "3d",
		-time.Second:                  "0s",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	inactive := daily()
	inactive.Active = false

	statuses := Evaluate([]database.MaintenanceWindow{daily(), inactive}, t0.Add(time.Minute))
	if len(statuses) != 2 {
		t.Fatalf("len = %d, want 2", len(statuses))
	}
	if !statuses[0].InWindow || statuses[0].Next == nil {
		t.Errorf("active window status = %+v", statuses[0])
	}
	if statuses[1].InWindow || statuses[1].Next != nil {
		t.Errorf("inactive window status = %+v", statuses[1])
	}
	if !CoversAny([]database.MaintenanceWindow{inactive, daily()}, t0.Add(time.Minute)) {
		t.Error("CoversAny should find the active window")
	}
}
