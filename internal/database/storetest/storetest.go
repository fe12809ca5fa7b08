// internal/database/storetest/storetest.go

// Package storetest runs the same behavioural checks against every
// database.ExtendedStore implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/John-MustangGT/vantage/internal/database"
)

// Factory returns a fresh, empty store. The store is closed by the caller.
type Factory func(t *testing.T) database.ExtendedStore

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

func rt(ms int64) *int64 { return &ms }

// Run executes every store check as a subtest.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s database.ExtendedStore)
	}{
		{"MonitorNotFound", testMonitorNotFound},
		{"GetMonitorsSkipsMissing", testGetMonitorsSkipsMissing},
		{"PageMonitors", testPageMonitors},
		{"CountMonitors", testCountMonitors},
		{"CountMonitorsAllTeams", testCountMonitorsAllTeams},
		{"SearchIsLiteral", testSearchIsLiteral},
		{"ChecksNewestFirst", testChecksNewestFirst},
		{"CheckFacets", testCheckFacets},
		{"LatestChecks", testLatestChecks},
		{"PageChecks", testPageChecks},
		{"HardwareRoundTrip", testHardwareRoundTrip},
		{"MaintenanceWindows", testMaintenanceWindows},
		{"StatusPages", testStatusPages},
		{"DeleteMonitorCascades", testDeleteMonitorCascades},
		{"SharedIDPrefix", testSharedIDPrefix},
		{"Retention", testRetention},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tc.fn(t, s)
		})
	}
}

func mustMonitor(t *testing.T, s database.Store, m database.Monitor) database.Monitor {
	t.Helper()
	if err := s.CreateMonitor(context.Background(), &m); err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	return m
}

func mustCheck(t *testing.T, s database.Store, c database.Check) database.Check {
	t.Helper()
	if err := s.CreateCheck(context.Background(), &c); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}
	return c
}

// seedChecks writes n checks one minute apart ending at base, every
// fifth one down.
func seedChecks(t *testing.T, s database.Store, monitorID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		mustCheck(t, s, database.Check{
			MonitorID:    monitorID,
			CreatedAt:    base.Add(-time.Duration(n-1-i) * time.Minute),
			Status:       i%5 != 0,
			ResponseTime: rt(int64(10 * i)),
		})
	}
}

func testMonitorNotFound(t *testing.T, s database.ExtendedStore) {
	_, err := s.GetMonitor(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetMonitor(missing) err = %v, want ErrNotFound", err)
	}
	_, err = s.GetStatusPageByURL(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetStatusPageByURL(missing) err = %v, want ErrNotFound", err)
	}
}

func testGetMonitorsSkipsMissing(t *testing.T, s database.ExtendedStore) {
	a := mustMonitor(t, s, database.Monitor{ID: "a", Name: "A", Type: database.MonitorHTTP})
	b := mustMonitor(t, s, database.Monitor{ID: "b", Name: "B", Type: database.MonitorHTTP})

	got, err := s.GetMonitors(context.Background(), []string{b.ID, "gone", a.ID})
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("GetMonitors = %+v, want [b a]", got)
	}
}

func testPageMonitors(t *testing.T, s database.ExtendedStore) {
	for i := 0; i < 12; i++ {
		typ := database.MonitorHTTP
		if i%3 == 0 {
			typ = database.MonitorPing
		}
		mustMonitor(t, s, database.Monitor{
			ID:       fmt.Sprintf("m%02d", i),
			Name:     fmt.Sprintf("service-%02d", i),
			URL:      fmt.Sprintf("https://host%02d.example.com", i),
			Type:     typ,
			TeamID:   "team-1",
			IsActive: i%4 != 0,
			Status:   i%2 == 0,
		})
	}
	mustMonitor(t, s, database.Monitor{ID: "other", Name: "service-xx", TeamID: "team-2", Type: database.MonitorHTTP})

	ctx := context.Background()

	page, err := s.PageMonitors(ctx, database.MonitorQuery{TeamID: "team-1", Field: "name", Order: database.SortDesc, Page: 1, PerPage: 5})
	if err != nil {
		t.Fatalf("PageMonitors: %v", err)
	}
	if page.Total != 12 {
		t.Errorf("total = %d, want 12", page.Total)
	}
	if len(page.Items) != 5 || page.Items[0].Name != "service-06" {
		t.Errorf("page 1 = %d items starting %q, want 5 starting service-06", len(page.Items), firstName(page.Items))
	}

	page, _ = s.PageMonitors(ctx, database.MonitorQuery{TeamID: "team-1", Search: "HOST1", PerPage: 50})
	if page.Total != 2 {
		t.Errorf("search total = %d, want 2", page.Total)
	}

	page, _ = s.PageMonitors(ctx, database.MonitorQuery{TeamID: "team-1", Types: []database.MonitorType{database.MonitorPing}})
	if page.Total != 4 || len(page.Items) != 4 {
		t.Errorf("type filter total = %d items = %d, want 4", page.Total, len(page.Items))
	}

	page, _ = s.PageMonitors(ctx, database.MonitorQuery{TeamID: "team-1", Status: boolPtr(false), Active: boolPtr(true)})
	for _, m := range page.Items {
		if m.Status || !m.IsActive {
			t.Errorf("filter leaked monitor %+v", m)
		}
	}
	if page.Total != 6 {
		t.Errorf("down+active total = %d, want 6", page.Total)
	}

	page, _ = s.PageMonitors(ctx, database.MonitorQuery{TeamID: "team-1", Page: 5, PerPage: 5})
	if page.Total != 12 || len(page.Items) != 0 {
		t.Errorf("past-the-end page = %d items total %d", len(page.Items), page.Total)
	}
}

func firstName(ms []database.Monitor) string {
	if len(ms) == 0 {
		return ""
	}
	return ms[0].Name
}

func testCountMonitors(t *testing.T, s database.ExtendedStore) {
	for i := 0; i < 10; i++ {
		mustMonitor(t, s, database.Monitor{
			ID:       fmt.Sprintf("m%d", i),
			Name:     fmt.Sprintf("m%d", i),
			Type:     database.MonitorHTTP,
			TeamID:   "team",
			Status:   i >= 3,
			IsActive: i < 8,
		})
	}

	counts, err := s.CountMonitors(context.Background(), "team")
	if err != nil {
		t.Fatalf("CountMonitors: %v", err)
	}
	want := database.MonitorCounts{Total: 10, Up: 7, Down: 3, Paused: 2}
	if *counts != want {
		t.Errorf("counts = %+v, want %+v", *counts, want)
	}
}

func testCountMonitorsAllTeams(t *testing.T, s database.ExtendedStore) {
	mustMonitor(t, s, database.Monitor{ID: "a", Name: "a", Type: database.MonitorHTTP, TeamID: "t1", Status: true, IsActive: true})
	mustMonitor(t, s, database.Monitor{ID: "b", Name: "b", Type: database.MonitorHTTP, TeamID: "t2", IsActive: true})
	mustMonitor(t, s, database.Monitor{ID: "c", Name: "c", Type: database.MonitorHTTP, Status: true})

	counts, err := s.CountMonitors(context.Background(), "")
	if err != nil {
		t.Fatalf("CountMonitors: %v", err)
	}
	want := database.MonitorCounts{Total: 3, Up: 2, Down: 1, Paused: 1}
	if *counts != want {
		t.Errorf("counts = %+v, want %+v", *counts, want)
	}
}

func testSearchIsLiteral(t *testing.T, s database.ExtendedStore) {
	monitors := []database.Monitor{
		{ID: "a", Name: "api", URL: "https://api.example.com", Type: database.MonitorHTTP},
		{ID: "b", Name: "billing", URL: "https://billing.example.com", Type: database.MonitorHTTP},
		{ID: "c", Name: "cpu_load", URL: "10.0.0.3", Type: database.MonitorHardware},
	}
	for _, m := range monitors {
		mustMonitor(t, s, m)
	}

	tests := []struct {
		search string
		want   int
	}{
		{"%", 0},
		{"_", 1},
		{"U_L", 1},
		{"B%", 0},
		{"EXAMPLE", 2},
	}

	ctx := context.Background()
	for _, tc := range tests {
		q := database.MonitorQuery{Search: tc.search}
		page, err := s.PageMonitors(ctx, q)
		if err != nil {
			t.Fatalf("PageMonitors(%q): %v", tc.search, err)
		}
		if page.Total != tc.want {
			t.Errorf("search %q total = %d, want %d", tc.search, page.Total, tc.want)
		}

		var matched int
		for _, m := range monitors {
			if q.Matches(m) {
				matched++
			}
		}
		if matched != page.Total {
			t.Errorf("search %q: store total %d, Matches %d", tc.search, page.Total, matched)
		}
	}
}

func testChecksNewestFirst(t *testing.T, s database.ExtendedStore) {
	seedChecks(t, s, "m1", 30)
	seedChecks(t, s, "m10", 5)

	checks, err := s.FindChecks(context.Background(), "m1", database.TimeRange{Start: base.Add(-9 * time.Minute), End: base})
	if err != nil {
		t.Fatalf("FindChecks: %v", err)
	}
	if len(checks) != 10 {
		t.Fatalf("len = %d, want 10", len(checks))
	}
	for i := 1; i < len(checks); i++ {
		if checks[i].CreatedAt.After(checks[i-1].CreatedAt) {
			t.Fatalf("checks not newest first at %d", i)
		}
		if checks[i].MonitorID != "m1" {
			t.Fatalf("leaked check from %s", checks[i].MonitorID)
		}
	}
	if !checks[0].CreatedAt.Equal(base) {
		t.Errorf("newest = %v, want %v", checks[0].CreatedAt, base)
	}
}

func testCheckFacets(t *testing.T, s database.ExtendedStore) {
	seedChecks(t, s, "m1", 120)

	facets, err := s.FindCheckFacets(context.Background(), "m1", database.TimeRange{Start: base.Add(-59 * time.Minute), End: base})
	if err != nil {
		t.Fatalf("FindCheckFacets: %v", err)
	}
	if len(facets.All) != 120 {
		t.Errorf("all = %d, want 120", len(facets.All))
	}
	if len(facets.Windowed) != 60 {
		t.Errorf("windowed = %d, want 60", len(facets.Windowed))
	}
	if !facets.All[0].CreatedAt.Equal(base) || !facets.Windowed[0].CreatedAt.Equal(base) {
		t.Error("facets not newest first")
	}
}

func testLatestChecks(t *testing.T, s database.ExtendedStore) {
	seedChecks(t, s, "m1", 20)
	seedChecks(t, s, "m2", 3)

	latest, err := s.LatestChecks(context.Background(), "m1", 5)
	if err != nil {
		t.Fatalf("LatestChecks: %v", err)
	}
	if len(latest) != 5 {
		t.Fatalf("len = %d, want 5", len(latest))
	}
	if !latest[0].CreatedAt.Equal(base) || !latest[4].CreatedAt.Equal(base.Add(-4*time.Minute)) {
		t.Errorf("latest range = %v .. %v", latest[0].CreatedAt, latest[4].CreatedAt)
	}

	// The last monitor in key order must still be reachable.
	latest, _ = s.LatestChecks(context.Background(), "m2", 10)
	if len(latest) != 3 {
		t.Errorf("m2 latest = %d, want 3", len(latest))
	}
}

func testPageChecks(t *testing.T, s database.ExtendedStore) {
	seedChecks(t, s, "m1", 25)

	page, err := s.PageChecks(context.Background(), database.CheckQuery{MonitorID: "m1", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("PageChecks: %v", err)
	}
	if page.Total != 25 || len(page.Items) != 10 {
		t.Errorf("page = %d items total %d", len(page.Items), page.Total)
	}
	if !page.Items[0].CreatedAt.Equal(base.Add(-10 * time.Minute)) {
		t.Errorf("first on page 1 = %v", page.Items[0].CreatedAt)
	}

	page, _ = s.PageChecks(context.Background(), database.CheckQuery{MonitorID: "m1", Status: boolPtr(false), Order: database.SortAsc})
	if page.Total != 5 {
		t.Errorf("down total = %d, want 5", page.Total)
	}
	if len(page.Items) > 1 && page.Items[0].CreatedAt.After(page.Items[1].CreatedAt) {
		t.Error("ascending order not applied")
	}
}

func testHardwareRoundTrip(t *testing.T, s database.ExtendedStore) {
	c := mustCheck(t, s, database.Check{
		MonitorID: "hw",
		CreatedAt: base,
		Status:    true,
		Hardware: &database.HardwarePayload{
			CPU:     database.CPUSample{UsagePercent: 42, Temperature: []float64{50, 55}},
			Network: []database.NetworkSample{{Name: "eth0", BytesRecv: 1024}},
		},
	})

	checks, err := s.FindChecks(context.Background(), "hw", database.TimeRange{})
	if err != nil || len(checks) != 1 {
		t.Fatalf("FindChecks = %d, %v", len(checks), err)
	}
	got := checks[0]
	if got.ID != c.ID || got.Hardware == nil {
		t.Fatalf("check = %+v", got)
	}
	if got.Hardware.CPU.UsagePercent != 42 || len(got.Hardware.CPU.Temperature) != 2 {
		t.Errorf("cpu = %+v", got.Hardware.CPU)
	}
	if got.ResponseTime != nil {
		t.Errorf("response time = %v, want nil", *got.ResponseTime)
	}
}

func testMaintenanceWindows(t *testing.T, s database.ExtendedStore) {
	ctx := context.Background()

	bad := database.MaintenanceWindow{MonitorID: "m1", Start: base, End: base.Add(-time.Minute)}
	if err := s.CreateMaintenanceWindow(ctx, &bad); !errors.Is(err, database.ErrInvalid) {
		t.Errorf("inverted window err = %v, want ErrInvalid", err)
	}
	tooLong := database.MaintenanceWindow{MonitorID: "m1", Start: base, End: base.Add(2 * time.Hour), Repeat: int64(time.Hour / time.Millisecond)}
	if err := s.CreateMaintenanceWindow(ctx, &tooLong); !errors.Is(err, database.ErrInvalid) {
		t.Errorf("overlong window err = %v, want ErrInvalid", err)
	}

	w := database.MaintenanceWindow{MonitorID: "m1", Name: "nightly", Start: base, End: base.Add(time.Hour), Repeat: int64(24 * time.Hour / time.Millisecond), Active: true}
	if err := s.CreateMaintenanceWindow(ctx, &w); err != nil {
		t.Fatalf("CreateMaintenanceWindow: %v", err)
	}
	other := database.MaintenanceWindow{MonitorID: "m2", Start: base, End: base.Add(time.Hour), Active: true}
	if err := s.CreateMaintenanceWindow(ctx, &other); err != nil {
		t.Fatalf("CreateMaintenanceWindow: %v", err)
	}

	windows, err := s.ListMaintenanceWindows(ctx, "m1")
	if err != nil {
		t.Fatalf("ListMaintenanceWindows: %v", err)
	}
	if len(windows) != 1 || windows[0].Name != "nightly" || !windows[0].Start.Equal(base) {
		t.Errorf("windows = %+v", windows)
	}

	if err := s.DeleteMaintenanceWindow(ctx, w.ID); err != nil {
		t.Fatalf("DeleteMaintenanceWindow: %v", err)
	}
	if err := s.DeleteMaintenanceWindow(ctx, w.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func testStatusPages(t *testing.T, s database.ExtendedStore) {
	ctx := context.Background()

	page := database.StatusPage{CompanyName: "Acme", URL: "acme", Monitors: []string{"b", "a"}, IsPublished: true}
	if err := s.CreateStatusPage(ctx, &page); err != nil {
		t.Fatalf("CreateStatusPage: %v", err)
	}
	dup := database.StatusPage{URL: "acme"}
	if err := s.CreateStatusPage(ctx, &dup); !errors.Is(err, database.ErrInvalid) {
		t.Errorf("duplicate url err = %v, want ErrInvalid", err)
	}

	got, err := s.GetStatusPageByURL(ctx, "acme")
	if err != nil {
		t.Fatalf("GetStatusPageByURL: %v", err)
	}
	if got.CompanyName != "Acme" || len(got.Monitors) != 2 || got.Monitors[0] != "b" {
		t.Errorf("page = %+v", got)
	}

	got.URL = "acme-status"
	if err := s.UpdateStatusPage(ctx, got); err != nil {
		t.Fatalf("UpdateStatusPage: %v", err)
	}
	if _, err := s.GetStatusPageByURL(ctx, "acme"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("old url err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetStatusPageByURL(ctx, "acme-status"); err != nil {
		t.Errorf("new url: %v", err)
	}

	pages, _ := s.ListStatusPages(ctx)
	if len(pages) != 1 {
		t.Errorf("pages = %d, want 1", len(pages))
	}
}

func testDeleteMonitorCascades(t *testing.T, s database.ExtendedStore) {
	ctx := context.Background()
	mustMonitor(t, s, database.Monitor{ID: "m1", Name: "one", Type: database.MonitorHTTP})
	seedChecks(t, s, "m1", 5)
	w := database.MaintenanceWindow{MonitorID: "m1", Start: base, End: base.Add(time.Hour), Active: true}
	if err := s.CreateMaintenanceWindow(ctx, &w); err != nil {
		t.Fatalf("CreateMaintenanceWindow: %v", err)
	}

	if err := s.DeleteMonitor(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMonitor: %v", err)
	}
	if _, err := s.GetMonitor(ctx, "m1"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetMonitor after delete err = %v", err)
	}
	if checks, _ := s.FindChecks(ctx, "m1", database.TimeRange{}); len(checks) != 0 {
		t.Errorf("checks after delete = %d", len(checks))
	}
	if windows, _ := s.ListMaintenanceWindows(ctx, "m1"); len(windows) != 0 {
		t.Errorf("windows after delete = %d", len(windows))
	}
}

// Monitor ids that prefix one another must keep separate histories.
func testSharedIDPrefix(t *testing.T, s database.ExtendedStore) {
	ctx := context.Background()
	mustMonitor(t, s, database.Monitor{ID: "web", Name: "web", Type: database.MonitorHTTP})
	mustMonitor(t, s, database.Monitor{ID: "web:eu", Name: "web eu", Type: database.MonitorHTTP})

	mustCheck(t, s, database.Check{MonitorID: "web", CreatedAt: base.Add(-time.Hour), Status: true, ResponseTime: rt(10)})
	for i := 0; i < 3; i++ {
		mustCheck(t, s, database.Check{MonitorID: "web:eu", CreatedAt: base.Add(-time.Duration(i) * time.Minute), Status: false})
	}
	for _, id := range []string{"web", "web:eu"} {
		w := database.MaintenanceWindow{MonitorID: id, Start: base, End: base.Add(time.Hour), Active: true}
		if err := s.CreateMaintenanceWindow(ctx, &w); err != nil {
			t.Fatalf("CreateMaintenanceWindow(%s): %v", id, err)
		}
	}

	facets, err := s.FindCheckFacets(ctx, "web", database.TimeRange{})
	if err != nil {
		t.Fatalf("FindCheckFacets: %v", err)
	}
	if len(facets.All) != 1 || !facets.All[0].Status {
		t.Errorf("web facets = %+v, want its single up check", facets.All)
	}

	latest, err := s.LatestChecks(ctx, "web", 10)
	if err != nil {
		t.Fatalf("LatestChecks: %v", err)
	}
	if len(latest) != 1 || latest[0].MonitorID != "web" {
		t.Errorf("web latest = %+v", latest)
	}

	if windows, _ := s.ListMaintenanceWindows(ctx, "web"); len(windows) != 1 {
		t.Errorf("web windows = %d, want 1", len(windows))
	}

	if n, err := s.DeleteChecksForMonitor(ctx, "web"); err != nil || n != 1 {
		t.Errorf("DeleteChecksForMonitor(web) = %d, %v, want 1", n, err)
	}
	mustCheck(t, s, database.Check{MonitorID: "web", CreatedAt: base, Status: true})

	if err := s.DeleteMonitor(ctx, "web"); err != nil {
		t.Fatalf("DeleteMonitor: %v", err)
	}
	if checks, _ := s.FindChecks(ctx, "web:eu", database.TimeRange{}); len(checks) != 3 {
		t.Errorf("web:eu checks after deleting web = %d, want 3", len(checks))
	}
	if windows, _ := s.ListMaintenanceWindows(ctx, "web:eu"); len(windows) != 1 {
		t.Errorf("web:eu windows after deleting web = %d, want 1", len(windows))
	}
}

func testRetention(t *testing.T, s database.ExtendedStore) {
	ctx := context.Background()
	mustMonitor(t, s, database.Monitor{ID: "m1", Name: "one", Type: database.MonitorHTTP})
	seedChecks(t, s, "m1", 30)
	seedChecks(t, s, "m2", 4)

	deleted, err := s.DeleteChecksBefore(ctx, base.Add(-9*time.Minute))
	if err != nil {
		t.Fatalf("DeleteChecksBefore: %v", err)
	}
	if deleted != 20 {
		t.Errorf("deleted = %d, want 20", deleted)
	}

	stats, err := s.GetDatabaseStats(ctx)
	if err != nil {
		t.Fatalf("GetDatabaseStats: %v", err)
	}
	if stats.TotalChecks != 14 || stats.TotalMonitors != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.OldestCheck.Equal(base.Add(-9*time.Minute)) || !stats.NewestCheck.Equal(base) {
		t.Errorf("stats range = %v .. %v", stats.OldestCheck, stats.NewestCheck)
	}

	n, err := s.DeleteChecksForMonitor(ctx, "m2")
	if err != nil || n != 4 {
		t.Errorf("DeleteChecksForMonitor = %d, %v, want 4", n, err)
	}

	if err := s.CompactDatabase(ctx); err != nil {
		t.Fatalf("CompactDatabase: %v", err)
	}
	if checks, _ := s.FindChecks(ctx, "m1", database.TimeRange{}); len(checks) != 10 {
		t.Errorf("checks after compaction = %d, want 10", len(checks))
	}
}
