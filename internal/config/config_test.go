package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "server:\n  port: \":9000\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != ":9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Server.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Server.Workers)
	}
	if cfg.Database.Type != "boltdb" || cfg.Database.Path != "./data/vantage.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Stats.DefaultDateRange != "day" || cfg.Stats.ChartPoints != 25 {
		t.Errorf("stats = %+v", cfg.Stats)
	}
	if cfg.Stats.NormalizeLow != 1 || cfg.Stats.NormalizeHigh != 100 {
		t.Errorf("normalize bounds = %v..%v", cfg.Stats.NormalizeLow, cfg.Stats.NormalizeHigh)
	}
	if len(cfg.Web.CORSOrigins) != 1 || cfg.Web.CORSOrigins[0] != "*" {
		t.Errorf("cors = %v", cfg.Web.CORSOrigins)
	}
}

func TestLoad_Seeds(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
monitors:
  - id: api
    name: API
    type: http
    url: https://example.com
    interval: 30s
    team_id: ops
  - id: box
    name: Box
    type: hardware
    active: false
maintenance_windows:
  - monitor_id: api
    name: nightly
    start: 2024-05-01T02:00:00Z
    duration: 10m
    repeat: 24h
status_pages:
  - url: status
    company_name: Acme
    published: true
    monitors: [api, box]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	api := cfg.Monitors[0].ToMonitor()
	if !api.IsActive || api.Interval != 30*time.Second || api.TeamID != "ops" {
		t.Errorf("api monitor = %+v", api)
	}
	if box := cfg.Monitors[1].ToMonitor(); box.IsActive {
		t.Error("box should be paused")
	}

	w := cfg.MaintenanceWindows[0].ToWindow()
	if w.Repeat != int64(24*time.Hour/time.Millisecond) || w.End.Sub(w.Start) != 10*time.Minute || !w.Active {
		t.Errorf("window = %+v", w)
	}

	page := cfg.StatusPages[0].ToStatusPage()
	if !page.IsPublished || len(page.Monitors) != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestLoad_Includes(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "conf.d"), 0755); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, "config.yaml", `
include:
  enabled: true
  directory: conf.d
monitors:
  - id: api
    name: API
    type: http
status_pages:
  - url: status
    company_name: Acme
    monitors: [api]
`)
	writeFile(t, filepath.Join(dir, "conf.d"), "10-monitors.yaml", `
monitors:
  - id: api
    name: API v2
    type: http
  - id: db
    name: Database
    type: port
status_pages:
  - url: status
    monitors: [db]
`)
	writeFile(t, filepath.Join(dir, "conf.d"), "20-stats.yml", `
stats:
  default_date_range: week
  chart_points: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Monitors) != 2 || cfg.Monitors[0].Name != "API v2" {
		t.Errorf("monitors = %+v", cfg.Monitors)
	}
	if got := cfg.StatusPages[0].Monitors; len(got) != 2 || got[1] != "db" {
		t.Errorf("status page monitors = %v", got)
	}
	if cfg.StatusPages[0].CompanyName != "Acme" {
		t.Errorf("partial include replaced the page: %+v", cfg.StatusPages[0])
	}
	if cfg.Stats.DefaultDateRange != "week" || cfg.Stats.ChartPoints != 50 {
		t.Errorf("stats = %+v", cfg.Stats)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VANTAGE_PORT", ":7000")
	t.Setenv("VANTAGE_WORKERS", "9")
	t.Setenv("VANTAGE_DB_TYPE", "sqlite")
	t.Setenv("VANTAGE_CORS_ORIGINS", "https://a.example, https://b.example")

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "server:\n  port: \":9000\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":7000" || cfg.Server.Workers != 9 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.Path != "./data/vantage.sqlite" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if len(cfg.Web.CORSOrigins) != 2 || cfg.Web.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.Web.CORSOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad database":   "database:\n  type: mongo\n",
		"bad range":      "stats:\n  default_date_range: fortnight\n",
		"inverted scale": "stats:\n  normalize_low: 50\n  normalize_high: 10\n",
		"duplicate id":   "monitors:\n  - {id: a, type: http}\n  - {id: a, type: http}\n",
		"unknown type":   "monitors:\n  - {id: a, type: smtp}\n",
		"window too long": `
maintenance_windows:
  - monitor_id: a
    start: 2024-05-01T02:00:00Z
    duration: 2h
    repeat: 1h
`,
		"duplicate page": "status_pages:\n  - {url: s}\n  - {url: s}\n",
		"bad timezone":   "status_pages:\n  - {url: s, timezone: Mars/Olympus}\n",
	}

	for name, content := range cases {
		dir := t.TempDir()
		path := writeFile(t, dir, "config.yaml", content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
