// internal/database/sqlite/store.go

// Package sqlite implements the database store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/John-MustangGT/vantage/internal/database"
)

// Store implements database.ExtendedStore for SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at path and ensures the schema exists.
func New(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS monitors (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	interval_ns INTEGER NOT NULL DEFAULT 0,
	is_active   INTEGER NOT NULL DEFAULT 1,
	status      INTEGER NOT NULL DEFAULT 1,
	team_id     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_team ON monitors (team_id);

CREATE TABLE IF NOT EXISTS checks (
	id            TEXT PRIMARY KEY,
	monitor_id    TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	status        INTEGER NOT NULL,
	response_time INTEGER,
	status_code   INTEGER NOT NULL DEFAULT 0,
	message       TEXT NOT NULL DEFAULT '',
	hardware      TEXT
);
CREATE INDEX IF NOT EXISTS idx_checks_monitor_created ON checks (monitor_id, created_at);

CREATE TABLE IF NOT EXISTS maintenance_windows (
	id         TEXT PRIMARY KEY,
	monitor_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	start_at   INTEGER NOT NULL,
	end_at     INTEGER NOT NULL,
	repeat_ms  INTEGER NOT NULL DEFAULT 0,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_windows_monitor ON maintenance_windows (monitor_id);

CREATE TABLE IF NOT EXISTS status_pages (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL UNIQUE,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- checks ---

const checkColumns = `id, monitor_id, created_at, status, response_time, status_code, message, hardware`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheck(row rowScanner) (database.Check, error) {
	var (
		check        database.Check
		createdAt    int64
		status       int
		responseTime sql.NullInt64
		hardware     sql.NullString
	)
	if err := row.Scan(&check.ID, &check.MonitorID, &createdAt, &status, &responseTime,
		&check.StatusCode, &check.Message, &hardware); err != nil {
		return check, err
	}
	check.CreatedAt = fromNanos(createdAt)
	check.Status = status == 1
	if responseTime.Valid {
		rt := responseTime.Int64
		check.ResponseTime = &rt
	}
	if hardware.Valid && hardware.String != "" {
		var payload database.HardwarePayload
		if err := json.Unmarshal([]byte(hardware.String), &payload); err == nil {
			check.Hardware = &payload
		}
	}
	return check, nil
}

func (s *Store) queryChecks(ctx context.Context, query string, args ...interface{}) ([]database.Check, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []database.Check
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

// rangeClause renders the optional time bounds of r as SQL.
func rangeClause(r database.TimeRange) (string, []interface{}) {
	var (
		clause strings.Builder
		args   []interface{}
	)
	if !r.Start.IsZero() {
		clause.WriteString(" AND created_at >= ?")
		args = append(args, r.Start.UnixNano())
	}
	if !r.End.IsZero() {
		clause.WriteString(" AND created_at <= ?")
		args = append(args, r.End.UnixNano())
	}
	return clause.String(), args
}

func (s *Store) FindChecks(ctx context.Context, monitorID string, r database.TimeRange) ([]database.Check, error) {
	clause, args := rangeClause(r)
	checks, err := s.queryChecks(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE monitor_id = ?`+clause+` ORDER BY created_at DESC, id DESC`,
		append([]interface{}{monitorID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to find checks: %w", err)
	}
	return checks, nil
}

// FindCheckFacets reads the monitor's history once and splits out the window.
func (s *Store) FindCheckFacets(ctx context.Context, monitorID string, window database.TimeRange) (*database.CheckFacets, error) {
	all, err := s.FindChecks(ctx, monitorID, database.TimeRange{})
	if err != nil {
		return nil, err
	}

	facets := &database.CheckFacets{All: all}
	for _, check := range all {
		if window.Contains(check.CreatedAt) {
			facets.Windowed = append(facets.Windowed, check)
		}
	}
	return facets, nil
}

func (s *Store) LatestChecks(ctx context.Context, monitorID string, limit int) ([]database.Check, error) {
	if limit <= 0 {
		limit = -1
	}
	checks, err := s.queryChecks(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE monitor_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest checks: %w", err)
	}
	return checks, nil
}

func (s *Store) PageChecks(ctx context.Context, q database.CheckQuery) (*database.CheckPage, error) {
	clause, args := rangeClause(q.Range)
	where := `WHERE monitor_id = ?` + clause
	args = append([]interface{}{q.MonitorID}, args...)
	if q.Status != nil {
		where += ` AND status = ?`
		args = append(args, boolInt(*q.Status))
	}

	page := &database.CheckPage{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checks `+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count checks: %w", err)
	}

	order := "DESC"
	if q.Order == database.SortAsc {
		order = "ASC"
	}
	start, end := database.PageBounds(page.Total, q.Page, q.PerPage)

	items, err := s.queryChecks(ctx,
		`SELECT `+checkColumns+` FROM checks `+where+` ORDER BY created_at `+order+`, id `+order+` LIMIT ? OFFSET ?`,
		append(args, end-start, start)...)
	if err != nil {
		return nil, fmt.Errorf("failed to page checks: %w", err)
	}
	page.Items = items
	return page, nil
}

func (s *Store) CreateCheck(ctx context.Context, check *database.Check) error {
	if check.MonitorID == "" {
		return fmt.Errorf("%w: monitor_id is required", database.ErrInvalid)
	}
	if check.ID == "" {
		check.ID = uuid.New().String()
	}
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now().UTC()
	}

	var responseTime sql.NullInt64
	if check.ResponseTime != nil {
		responseTime = sql.NullInt64{Int64: *check.ResponseTime, Valid: true}
	}
	var hardware sql.NullString
	if check.Hardware != nil {
		data, err := json.Marshal(check.Hardware)
		if err != nil {
			return fmt.Errorf("failed to marshal hardware payload: %w", err)
		}
		hardware = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (`+checkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		check.ID, check.MonitorID, check.CreatedAt.UnixNano(), boolInt(check.Status),
		responseTime, check.StatusCode, check.Message, hardware)
	if err != nil {
		return fmt.Errorf("failed to insert check: %w", err)
	}
	return nil
}

// --- monitors ---

const monitorColumns = `id, name, type, url, interval_ns, is_active, status, team_id, created_at, updated_at`

func scanMonitor(row rowScanner) (database.Monitor, error) {
	var (
		m                    database.Monitor
		interval             int64
		active, status       int
		createdAt, updatedAt int64
	)
	err := row.Scan(&m.ID, &m.Name, &m.Type, &m.URL, &interval, &active, &status, &m.TeamID, &createdAt, &updatedAt)
	m.Interval = time.Duration(interval)
	m.IsActive = active == 1
	m.Status = status == 1
	m.CreatedAt = fromNanos(createdAt)
	m.UpdatedAt = fromNanos(updatedAt)
	return m, err
}

func (s *Store) queryMonitors(ctx context.Context, query string, args ...interface{}) ([]database.Monitor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []database.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitor: %w", err)
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

func (s *Store) GetMonitor(ctx context.Context, id string) (*database.Monitor, error) {
	m, err := scanMonitor(s.db.QueryRowContext(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("monitor %s: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	return &m, nil
}

// GetMonitors keeps the order of ids and skips ids that no longer exist.
func (s *Store) GetMonitors(ctx context.Context, ids []string) ([]database.Monitor, error) {
	if len(ids) == 0 {
		return []database.Monitor{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found, err := s.queryMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitors: %w", err)
	}

	byID := make(map[string]database.Monitor, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	monitors := make([]database.Monitor, 0, len(found))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			monitors = append(monitors, m)
		}
	}
	return monitors, nil
}

// monitorWhere renders the filters of q as a WHERE clause.
func monitorWhere(q database.MonitorQuery) (string, []interface{}) {
	conds := []string{"1 = 1"}
	var args []interface{}

	if q.TeamID != "" {
		conds = append(conds, "team_id = ?")
		args = append(args, q.TeamID)
	}
	if len(q.Types) > 0 {
		conds = append(conds, "type IN ("+strings.TrimSuffix(strings.Repeat("?,", len(q.Types)), ",")+")")
		for _, t := range q.Types {
			args = append(args, string(t))
		}
	}
	if q.Active != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, boolInt(*q.Active))
	}
	if q.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, boolInt(*q.Status))
	}
	if q.Search != "" {
		// Literal substring match, same as MonitorQuery.Matches.
		conds = append(conds, "(instr(LOWER(name), ?) > 0 OR instr(LOWER(url), ?) > 0)")
		needle := strings.ToLower(q.Search)
		args = append(args, needle, needle)
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var sortColumns = map[string]string{
	"name":       "LOWER(name)",
	"type":       "type",
	"url":        "url",
	"status":     "status",
	"created_at": "created_at",
	"interval":   "interval_ns",
}

func (s *Store) ListMonitors(ctx context.Context, filters database.MonitorFilters) ([]database.Monitor, error) {
	where, args := monitorWhere(database.MonitorQuery{TeamID: filters.TeamID, Types: filters.Types, Active: filters.Active})
	monitors, err := s.queryMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors `+where+` ORDER BY LOWER(name), id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	return monitors, nil
}

func (s *Store) PageMonitors(ctx context.Context, q database.MonitorQuery) (*database.MonitorPage, error) {
	where, args := monitorWhere(q)

	page := &database.MonitorPage{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitors `+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count monitors: %w", err)
	}

	column, ok := sortColumns[q.Field]
	if !ok {
		column = sortColumns["name"]
	}
	order := "ASC"
	if q.Order == database.SortDesc {
		order = "DESC"
	}
	start, end := database.PageBounds(page.Total, q.Page, q.PerPage)

	items, err := s.queryMonitors(ctx,
		`SELECT `+monitorColumns+` FROM monitors `+where+` ORDER BY `+column+` `+order+`, id ASC LIMIT ? OFFSET ?`,
		append(args, end-start, start)...)
	if err != nil {
		return nil, fmt.Errorf("failed to page monitors: %w", err)
	}
	page.Items = items
	if page.Items == nil {
		page.Items = []database.Monitor{}
	}
	return page, nil
}

func (s *Store) CountMonitors(ctx context.Context, teamID string) (*database.MonitorCounts, error) {
	where, args := monitorWhere(database.MonitorQuery{TeamID: teamID})

	counts := &database.MonitorCounts{}
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = 1 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN status = 0 THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN is_active = 0 THEN 1 ELSE 0 END), 0)
FROM monitors `+where, args...).Scan(&counts.Total, &counts.Up, &counts.Down, &counts.Paused)
	if err != nil {
		return nil, fmt.Errorf("failed to count monitors: %w", err)
	}
	return counts, nil
}

func (s *Store) CreateMonitor(ctx context.Context, m *database.Monitor) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt

	_, err := s.db.ExecContext(ctx, `INSERT INTO monitors (`+monitorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(m.Type), m.URL, int64(m.Interval), boolInt(m.IsActive), boolInt(m.Status),
		m.TeamID, nanos(m.CreatedAt), nanos(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert monitor: %w", err)
	}
	return nil
}

func (s *Store) UpdateMonitor(ctx context.Context, m *database.Monitor) error {
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
UPDATE monitors SET name = ?, type = ?, url = ?, interval_ns = ?, is_active = ?, status = ?, team_id = ?, updated_at = ?
WHERE id = ?`,
		m.Name, string(m.Type), m.URL, int64(m.Interval), boolInt(m.IsActive), boolInt(m.Status),
		m.TeamID, nanos(m.UpdatedAt), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update monitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("monitor %s: %w", m.ID, database.ErrNotFound)
	}
	return nil
}

// DeleteMonitor removes the monitor together with its checks and windows.
func (s *Store) DeleteMonitor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM checks WHERE monitor_id = ?`,
		`DELETE FROM maintenance_windows WHERE monitor_id = ?`,
		`DELETE FROM monitors WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete monitor: %w", err)
		}
	}
	return tx.Commit()
}

// --- maintenance windows ---

func (s *Store) ListMaintenanceWindows(ctx context.Context, monitorID string) ([]database.MaintenanceWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, monitor_id, name, start_at, end_at, repeat_ms, active, created_at
FROM maintenance_windows WHERE monitor_id = ? ORDER BY start_at, id`, monitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance windows: %w", err)
	}
	defer rows.Close()

	var windows []database.MaintenanceWindow
	for rows.Next() {
		var (
			w                     database.MaintenanceWindow
			start, end, createdAt int64
			active                int
		)
		if err := rows.Scan(&w.ID, &w.MonitorID, &w.Name, &start, &end, &w.Repeat, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance window: %w", err)
		}
		w.Start = fromNanos(start)
		w.End = fromNanos(end)
		w.Active = active == 1
		w.CreatedAt = fromNanos(createdAt)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *Store) CreateMaintenanceWindow(ctx context.Context, w *database.MaintenanceWindow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO maintenance_windows (id, monitor_id, name, start_at, end_at, repeat_ms, active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.MonitorID, w.Name, nanos(w.Start), nanos(w.End), w.Repeat, boolInt(w.Active), nanos(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert maintenance window: %w", err)
	}
	return nil
}

func (s *Store) DeleteMaintenanceWindow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM maintenance_windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete maintenance window: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("maintenance window %s: %w", id, database.ErrNotFound)
	}
	return nil
}

// --- status pages ---

func (s *Store) GetStatusPageByURL(ctx context.Context, url string) (*database.StatusPage, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM status_pages WHERE url = ?`, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status page %s: %w", url, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status page: %w", err)
	}

	var page database.StatusPage
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status page: %w", err)
	}
	return &page, nil
}

func (s *Store) ListStatusPages(ctx context.Context) ([]database.StatusPage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM status_pages ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list status pages: %w", err)
	}
	defer rows.Close()

	var pages []database.StatusPage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var page database.StatusPage
		if err := json.Unmarshal([]byte(data), &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status page: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func (s *Store) CreateStatusPage(ctx context.Context, page *database.StatusPage) error {
	if page.URL == "" {
		return fmt.Errorf("%w: status page url is required", database.ErrInvalid)
	}
	if page.ID == "" {
		page.ID = uuid.New().String()
	}
	page.CreatedAt = time.Now().UTC()
	page.UpdatedAt = page.CreatedAt

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal status page: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO status_pages (id, url, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(url) DO NOTHING`,
		page.ID, page.URL, string(data), nanos(page.CreatedAt), nanos(page.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert status page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: status page url %q already in use", database.ErrInvalid, page.URL)
	}
	return nil
}

func (s *Store) UpdateStatusPage(ctx context.Context, page *database.StatusPage) error {
	page.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal status page: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE status_pages SET url = ?, data = ?, updated_at = ? WHERE id = ?`,
		page.URL, string(data), nanos(page.UpdatedAt), page.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: status page url %q already in use", database.ErrInvalid, page.URL)
		}
		return fmt.Errorf("failed to update status page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("status page %s: %w", page.ID, database.ErrNotFound)
	}
	return nil
}

// --- retention ---

func (s *Store) DeleteChecksBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checks WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old checks: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteChecksForMonitor(ctx context.Context, monitorID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checks WHERE monitor_id = ?`, monitorID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete checks for monitor %s: %w", monitorID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CompactDatabase reclaims free pages with VACUUM.
func (s *Store) CompactDatabase(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func (s *Store) GetDatabaseStats(ctx context.Context) (*database.DatabaseStats, error) {
	stats := &database.DatabaseStats{Backend: "sqlite"}

	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM monitors),
       (SELECT COUNT(*) FROM checks),
       (SELECT COUNT(*) FROM maintenance_windows),
       (SELECT COUNT(*) FROM status_pages),
       (SELECT MIN(created_at) FROM checks),
       (SELECT MAX(created_at) FROM checks)`).Scan(
		&stats.TotalMonitors, &stats.TotalChecks, &stats.TotalMaintenanceWindow, &stats.TotalStatusPages, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestCheck = fromNanos(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestCheck = fromNanos(newest.Int64)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

var _ database.ExtendedStore = (*Store)(nil)
