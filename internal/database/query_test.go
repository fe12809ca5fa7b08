package database

import (
	"testing"
	"time"
)

func TestPageBounds(t *testing.T) {
	cases := []struct {
		n, page, perPage int
		start, end       int
	}{
		{10, 0, 0, 0, 10},
		{10, 0, 3, 0, 3},
		{10, 3, 3, 9, 10},
		{10, 4, 3, 10, 10},
		{10, -1, 3, 0, 3},
		{0, 0, 5, 0, 0},
	}
	for _, tc := range cases {
		start, end := PageBounds(tc.n, tc.page, tc.perPage)
		if start != tc.start || end != tc.end {
			t.Errorf("PageBounds(%d, %d, %d) = %d, %d, want %d, %d",
				tc.n, tc.page, tc.perPage, start, end, tc.start, tc.end)
		}
	}
}

func TestSortMonitors_StableOnTies(t *testing.T) {
	monitors := []Monitor{
		{ID: "c", Name: "same"},
		{ID: "a", Name: "same"},
		{ID: "b", Name: "Alpha"},
	}
	SortMonitors(monitors, "name", SortDesc)
	if monitors[0].ID != "a" || monitors[1].ID != "c" || monitors[2].ID != "b" {
		t.Errorf("order = %s %s %s", monitors[0].ID, monitors[1].ID, monitors[2].ID)
	}
}

func TestTally(t *testing.T) {
	monitors := []Monitor{
		{Status: true, IsActive: true},
		{Status: true, IsActive: false},
		{Status: false, IsActive: true},
		{Status: false, IsActive: false},
	}
	got := Tally(monitors)
	want := MonitorCounts{Total: 4, Up: 2, Down: 2, Paused: 2}
	if *got != want {
		t.Errorf("Tally = %+v, want %+v", *got, want)
	}
}

func TestMaintenanceWindowValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ok := MaintenanceWindow{MonitorID: "m", Start: start, End: start.Add(time.Hour), Repeat: int64(time.Hour / time.Millisecond)}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	noMonitor := ok
	noMonitor.MonitorID = ""
	if err := noMonitor.Validate(); err == nil {
		t.Error("missing monitor_id accepted")
	}

	negative := ok
	negative.Repeat = -1
	if err := negative.Validate(); err == nil {
		t.Error("negative repeat accepted")
	}
}

func TestTimeRangeContains(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !(TimeRange{}).Contains(at) {
		t.Error("open range should contain everything")
	}
	if (TimeRange{Start: at.Add(time.Second)}).Contains(at) {
		t.Error("start bound ignored")
	}
	if !(TimeRange{Start: at, End: at}).Contains(at) {
		t.Error("bounds should be inclusive")
	}
}
