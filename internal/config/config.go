// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/stats"
)

type Config struct {
	Server             ServerConfig              `yaml:"server"`
	Web                WebConfig                 `yaml:"web"`
	Database           DatabaseConfig            `yaml:"database"`
	Prometheus         PrometheusConfig          `yaml:"prometheus"`
	Logging            LoggingConfig             `yaml:"logging"`
	Stats              StatsConfig               `yaml:"stats"`
	Monitors           []MonitorConfig           `yaml:"monitors"`
	MaintenanceWindows []MaintenanceWindowConfig `yaml:"maintenance_windows"`
	StatusPages        []StatusPageConfig        `yaml:"status_pages"`
	Include            IncludeConfig             `yaml:"include"`
}

type IncludeConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern"`
	Enabled   bool   `yaml:"enabled"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	Workers      int           `yaml:"workers"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type WebConfig struct {
	CORSOrigins []string `yaml:"cors_origins"`
	HeaderLink  string   `yaml:"header_link"`
}

type DatabaseConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StatsConfig tunes the statistics engine.
type StatsConfig struct {
	DefaultDateRange     string  `yaml:"default_date_range"`
	ChartPoints          int     `yaml:"chart_points"`
	NormalizeLow         float64 `yaml:"normalize_low"`
	NormalizeHigh        float64 `yaml:"normalize_high"`
	TeamCheckLimit       int     `yaml:"team_check_limit"`
	StatusPageChecks     int     `yaml:"status_page_checks"`
	DisableSnapshotCache bool    `yaml:"disable_snapshot_cache"`
}

type MonitorConfig struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
	TeamID   string        `yaml:"team_id"`
	Active   *bool         `yaml:"active"`
}

type MaintenanceWindowConfig struct {
	ID        string        `yaml:"id"`
	MonitorID string        `yaml:"monitor_id"`
	Name      string        `yaml:"name"`
	Start     time.Time     `yaml:"start"`
	Duration  time.Duration `yaml:"duration"`
	Repeat    time.Duration `yaml:"repeat"`
	Active    *bool         `yaml:"active"`
}

type StatusPageConfig struct {
	ID                   string   `yaml:"id"`
	CompanyName          string   `yaml:"company_name"`
	URL                  string   `yaml:"url"`
	Monitors             []string `yaml:"monitors"`
	SubMonitors          []string `yaml:"sub_monitors"`
	Published            bool     `yaml:"published"`
	Timezone             string   `yaml:"timezone"`
	Color                string   `yaml:"color"`
	Theme                string   `yaml:"theme"`
	Logo                 string   `yaml:"logo"`
	ShowCharts           bool     `yaml:"show_charts"`
	ShowUptimePercentage bool     `yaml:"show_uptime_percentage"`
}

// PartialConfig represents a partial configuration that can be merged
type PartialConfig struct {
	Server             *ServerConfig             `yaml:"server,omitempty"`
	Web                *WebConfig                `yaml:"web,omitempty"`
	Database           *DatabaseConfig           `yaml:"database,omitempty"`
	Prometheus         *PrometheusConfig         `yaml:"prometheus,omitempty"`
	Logging            *LoggingConfig            `yaml:"logging,omitempty"`
	Stats              *StatsConfig              `yaml:"stats,omitempty"`
	Monitors           []MonitorConfig           `yaml:"monitors,omitempty"`
	MaintenanceWindows []MaintenanceWindowConfig `yaml:"maintenance_windows,omitempty"`
	StatusPages        []StatusPageConfig        `yaml:"status_pages,omitempty"`
}

// Load reads filename, merges includes, applies .env and VANTAGE_*
// environment overrides, then fills defaults and validates.
func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config file: %w", err)
	}

	if config.Include.Enabled && config.Include.Directory != "" {
		if err := loadIncludes(config, filepath.Dir(filename)); err != nil {
			return nil, fmt.Errorf("failed to load includes: %w", err)
		}
	}

	_ = godotenv.Load()
	applyEnv(config)

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

func loadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func loadIncludes(config *Config, baseDir string) error {
	includeDir := config.Include.Directory

	// Make include directory relative to main config file if not absolute
	if !filepath.IsAbs(includeDir) {
		includeDir = filepath.Join(baseDir, includeDir)
	}

	if _, err := os.Stat(includeDir); os.IsNotExist(err) {
		return fmt.Errorf("include directory does not exist: %s", includeDir)
	}

	pattern := config.Include.Pattern
	if pattern == "" {
		pattern = "*.yaml"
	}

	matches, err := filepath.Glob(filepath.Join(includeDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to glob include pattern: %w", err)
	}

	// Also check for .yml files if pattern is default
	if pattern == "*.yaml" {
		ymlMatches, err := filepath.Glob(filepath.Join(includeDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to glob .yml files: %w", err)
		}
		matches = append(matches, ymlMatches...)
	}

	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})

	for _, match := range matches {
		if err := loadAndMergeInclude(config, match); err != nil {
			return fmt.Errorf("failed to load include file %s: %w", match, err)
		}
	}

	return nil
}

func loadAndMergeInclude(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read include file: %w", err)
	}

	var partial PartialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("failed to parse include file YAML: %w", err)
	}

	mergePartialConfig(config, &partial)
	return nil
}

func mergePartialConfig(config *Config, partial *PartialConfig) {
	if len(partial.Monitors) > 0 {
		mergeMonitors(config, partial.Monitors)
	}
	if len(partial.MaintenanceWindows) > 0 {
		config.MaintenanceWindows = append(config.MaintenanceWindows, partial.MaintenanceWindows...)
	}
	if len(partial.StatusPages) > 0 {
		mergeStatusPages(config, partial.StatusPages)
	}

	// For other sections, only override if they exist in the partial config
	if partial.Server != nil {
		mergeServerConfig(&config.Server, partial.Server)
	}
	if partial.Web != nil {
		mergeWebConfig(&config.Web, partial.Web)
	}
	if partial.Database != nil {
		mergeDatabaseConfig(&config.Database, partial.Database)
	}
	if partial.Prometheus != nil {
		mergePrometheusConfig(&config.Prometheus, partial.Prometheus)
	}
	if partial.Logging != nil {
		mergeLoggingConfig(&config.Logging, partial.Logging)
	}
	if partial.Stats != nil {
		mergeStatsConfig(&config.Stats, partial.Stats)
	}
}

// mergeMonitors replaces monitors with a matching id and appends the rest.
func mergeMonitors(config *Config, monitors []MonitorConfig) {
	index := make(map[string]int, len(config.Monitors))
	for i, m := range config.Monitors {
		index[m.ID] = i
	}

	for _, m := range monitors {
		if i, exists := index[m.ID]; exists && m.ID != "" {
			config.Monitors[i] = m
			continue
		}
		config.Monitors = append(config.Monitors, m)
		index[m.ID] = len(config.Monitors) - 1
	}
}

// mergeStatusPages appends monitors to a page already defined with the
// same url when the include only lists monitors; otherwise it replaces it.
func mergeStatusPages(config *Config, pages []StatusPageConfig) {
	index := make(map[string]int, len(config.StatusPages))
	for i, p := range config.StatusPages {
		index[p.URL] = i
	}

	for _, p := range pages {
		i, exists := index[p.URL]
		if !exists {
			config.StatusPages = append(config.StatusPages, p)
			index[p.URL] = len(config.StatusPages) - 1
			continue
		}
		if isPartialStatusPage(p) {
			existing := &config.StatusPages[i]
			existing.Monitors = appendUnique(existing.Monitors, p.Monitors)
			existing.SubMonitors = appendUnique(existing.SubMonitors, p.SubMonitors)
			continue
		}
		config.StatusPages[i] = p
	}
}

func isPartialStatusPage(p StatusPageConfig) bool {
	return p.URL != "" &&
		(len(p.Monitors) > 0 || len(p.SubMonitors) > 0) &&
		p.ID == "" &&
		p.CompanyName == "" &&
		!p.Published &&
		p.Timezone == "" &&
		p.Color == "" &&
		p.Theme == "" &&
		p.Logo == ""
}

func appendUnique(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range more {
		if !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}

func mergeServerConfig(main *ServerConfig, partial *ServerConfig) {
	if partial.Port != "" {
		main.Port = partial.Port
	}
	if partial.Workers != 0 {
		main.Workers = partial.Workers
	}
	if partial.ReadTimeout != 0 {
		main.ReadTimeout = partial.ReadTimeout
	}
	if partial.WriteTimeout != 0 {
		main.WriteTimeout = partial.WriteTimeout
	}
}

func mergeWebConfig(main *WebConfig, partial *WebConfig) {
	if len(partial.CORSOrigins) > 0 {
		main.CORSOrigins = appendUnique(main.CORSOrigins, partial.CORSOrigins)
	}
	if partial.HeaderLink != "" {
		main.HeaderLink = partial.HeaderLink
	}
}

func mergeDatabaseConfig(main *DatabaseConfig, partial *DatabaseConfig) {
	if partial.Type != "" {
		main.Type = partial.Type
	}
	if partial.Path != "" {
		main.Path = partial.Path
	}
}

func mergePrometheusConfig(main *PrometheusConfig, partial *PrometheusConfig) {
	main.Enabled = partial.Enabled
	if partial.MetricsPath != "" {
		main.MetricsPath = partial.MetricsPath
	}
}

func mergeLoggingConfig(main *LoggingConfig, partial *LoggingConfig) {
	if partial.Level != "" {
		main.Level = partial.Level
	}
	if partial.Format != "" {
		main.Format = partial.Format
	}
}

func mergeStatsConfig(main *StatsConfig, partial *StatsConfig) {
	if partial.DefaultDateRange != "" {
		main.DefaultDateRange = partial.DefaultDateRange
	}
	if partial.ChartPoints != 0 {
		main.ChartPoints = partial.ChartPoints
	}
	if partial.NormalizeLow != 0 {
		main.NormalizeLow = partial.NormalizeLow
	}
	if partial.NormalizeHigh != 0 {
		main.NormalizeHigh = partial.NormalizeHigh
	}
	if partial.TeamCheckLimit != 0 {
		main.TeamCheckLimit = partial.TeamCheckLimit
	}
	if partial.StatusPageChecks != 0 {
		main.StatusPageChecks = partial.StatusPageChecks
	}
	main.DisableSnapshotCache = partial.DisableSnapshotCache
}

// applyEnv overrides file settings from VANTAGE_* variables.
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("VANTAGE_PORT", cfg.Server.Port)
	cfg.Server.Workers = getEnvInt("VANTAGE_WORKERS", cfg.Server.Workers)
	cfg.Database.Type = getEnv("VANTAGE_DB_TYPE", cfg.Database.Type)
	cfg.Database.Path = getEnv("VANTAGE_DB_PATH", cfg.Database.Path)
	cfg.Logging.Level = getEnv("VANTAGE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("VANTAGE_LOG_FORMAT", cfg.Logging.Format)
	cfg.Stats.DefaultDateRange = getEnv("VANTAGE_DEFAULT_DATE_RANGE", cfg.Stats.DefaultDateRange)

	if origins, ok := os.LookupEnv("VANTAGE_CORS_ORIGINS"); ok {
		cfg.Web.CORSOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.Web.CORSOrigins = append(cfg.Web.CORSOrigins, origin)
			}
		}
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = 4
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "boltdb"
	}
	if cfg.Database.Path == "" {
		if cfg.Database.Type == "sqlite" {
			cfg.Database.Path = "./data/vantage.sqlite"
		} else {
			cfg.Database.Path = "./data/vantage.db"
		}
	}

	// Web defaults
	if len(cfg.Web.CORSOrigins) == 0 {
		cfg.Web.CORSOrigins = []string{"*"}
	}

	if cfg.Include.Pattern == "" {
		cfg.Include.Pattern = "*.yaml"
	}

	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	// Stats defaults
	if cfg.Stats.DefaultDateRange == "" {
		cfg.Stats.DefaultDateRange = string(stats.RangeDay)
	}
	if cfg.Stats.ChartPoints == 0 {
		cfg.Stats.ChartPoints = 25
	}
	if cfg.Stats.NormalizeLow == 0 && cfg.Stats.NormalizeHigh == 0 {
		cfg.Stats.NormalizeLow = 1
		cfg.Stats.NormalizeHigh = 100
	}
	if cfg.Stats.TeamCheckLimit == 0 {
		cfg.Stats.TeamCheckLimit = 25
	}
	if cfg.Stats.StatusPageChecks == 0 {
		cfg.Stats.StatusPageChecks = 50
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1")
	}
	if cfg.Database.Type != "boltdb" && cfg.Database.Type != "sqlite" {
		return fmt.Errorf("database.type must be boltdb or sqlite, got %q", cfg.Database.Type)
	}

	if !stats.DateRange(cfg.Stats.DefaultDateRange).Valid() {
		return fmt.Errorf("stats.default_date_range %q is not one of recent, day, week, month, all", cfg.Stats.DefaultDateRange)
	}
	if cfg.Stats.ChartPoints < 1 {
		return fmt.Errorf("stats.chart_points must be at least 1")
	}
	if cfg.Stats.NormalizeLow >= cfg.Stats.NormalizeHigh {
		return fmt.Errorf("stats.normalize_low must be below stats.normalize_high")
	}
	if cfg.Stats.TeamCheckLimit < 1 || cfg.Stats.StatusPageChecks < 1 {
		return fmt.Errorf("stats.team_check_limit and stats.status_page_checks must be at least 1")
	}

	if cfg.Web.HeaderLink != "" && !isValidURL(cfg.Web.HeaderLink) {
		return fmt.Errorf("web.header_link must be a valid URL")
	}

	if cfg.Include.Enabled {
		if cfg.Include.Directory == "" {
			return fmt.Errorf("include.directory must be specified when include.enabled is true")
		}
		if cfg.Include.Pattern != "" && !isValidGlobPattern(cfg.Include.Pattern) {
			return fmt.Errorf("include.pattern contains invalid glob pattern: %s", cfg.Include.Pattern)
		}
	}

	monitorIDs := make(map[string]bool)
	for _, m := range cfg.Monitors {
		if m.ID == "" {
			return fmt.Errorf("monitor %q has no id", m.Name)
		}
		if monitorIDs[m.ID] {
			return fmt.Errorf("duplicate monitor ID: %s", m.ID)
		}
		monitorIDs[m.ID] = true
		if !database.MonitorType(m.Type).Valid() {
			return fmt.Errorf("monitor '%s' has unknown type %q", m.ID, m.Type)
		}
	}

	for i, w := range cfg.MaintenanceWindows {
		if w.MonitorID == "" {
			return fmt.Errorf("maintenance window %d has no monitor_id", i)
		}
		window := w.ToWindow()
		if err := window.Validate(); err != nil {
			return fmt.Errorf("maintenance window %d for monitor '%s': %w", i, w.MonitorID, err)
		}
	}

	pageURLs := make(map[string]bool)
	for _, p := range cfg.StatusPages {
		if p.URL == "" {
			return fmt.Errorf("status page %q has no url", p.CompanyName)
		}
		if pageURLs[p.URL] {
			return fmt.Errorf("duplicate status page url: %s", p.URL)
		}
		pageURLs[p.URL] = true
		if p.Timezone != "" {
			if _, err := time.LoadLocation(p.Timezone); err != nil {
				return fmt.Errorf("status page '%s' has invalid timezone: %w", p.URL, err)
			}
		}
	}

	return nil
}

// ToMonitor converts the seed entry into a store record.
func (m MonitorConfig) ToMonitor() database.Monitor {
	active := true
	if m.Active != nil {
		active = *m.Active
	}
	return database.Monitor{
		ID:       m.ID,
		Name:     m.Name,
		Type:     database.MonitorType(m.Type),
		URL:      m.URL,
		Interval: m.Interval,
		TeamID:   m.TeamID,
		IsActive: active,
		Status:   true,
	}
}

func (w MaintenanceWindowConfig) ToWindow() database.MaintenanceWindow {
	active := true
	if w.Active != nil {
		active = *w.Active
	}
	return database.MaintenanceWindow{
		ID:        w.ID,
		MonitorID: w.MonitorID,
		Name:      w.Name,
		Start:     w.Start,
		End:       w.Start.Add(w.Duration),
		Repeat:    w.Repeat.Milliseconds(),
		Active:    active,
	}
}

func (p StatusPageConfig) ToStatusPage() database.StatusPage {
	return database.StatusPage{
		ID:          p.ID,
		CompanyName: p.CompanyName,
		URL:         p.URL,
		Monitors:    p.Monitors,
		SubMonitors: p.SubMonitors,
		IsPublished: p.Published,
		Timezone:    p.Timezone,
		Options: database.StatusPageOptions{
			Color:                p.Color,
			Theme:                p.Theme,
			Logo:                 p.Logo,
			ShowCharts:           p.ShowCharts,
			ShowUptimePercentage: p.ShowUptimePercentage,
		},
	}
}

// isValidURL checks if a string is a valid URL
func isValidURL(str string) bool {
	return strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://")
}

// isValidGlobPattern checks if a string is a valid glob pattern
func isValidGlobPattern(pattern string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "\\") {
		return false
	}
	_, err := filepath.Match(pattern, "test.yaml")
	return err == nil
}
