// internal/database/boltstore.go - BoltDB implementation
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	MonitorsBucket    = []byte("monitors")
	ChecksBucket      = []byte("checks")
	WindowsBucket     = []byte("maintenance_windows")
	StatusPagesBucket = []byte("status_pages")
	PageURLsBucket    = []byte("status_page_urls")
	MetaBucket        = []byte("meta")

	allBuckets = [][]byte{MonitorsBucket, ChecksBucket, WindowsBucket, StatusPagesBucket, PageURLsBucket, MetaBucket}
)

// BoltStore implements Store on a single bbolt file.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// Checks live in one nested bucket per monitor, keyed by
// "<unix nanos, zero padded>:<checkID>" so cursor order is creation order.
func checkKey(at time.Time, checkID string) []byte {
	nanos := at.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return []byte(fmt.Sprintf("%020d:%s", nanos, checkID))
}

// checkKeyTime extracts the timestamp embedded in a check key.
func checkKeyTime(key []byte) (time.Time, bool) {
	parts := strings.SplitN(string(key), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

// monitorBucket returns the monitor's nested bucket under parent, or nil
// when nothing has been stored for it yet.
func monitorBucket(tx *bbolt.Tx, parent []byte, monitorID string) *bbolt.Bucket {
	if monitorID == "" {
		return nil
	}
	return tx.Bucket(parent).Bucket([]byte(monitorID))
}

// eachMonitorBucket calls fn for every nested monitor bucket under parent.
// Names are collected up front so fn may write to the nested buckets.
func eachMonitorBucket(tx *bbolt.Tx, parent []byte, fn func(monitorID []byte, b *bbolt.Bucket) error) error {
	root := tx.Bucket(parent)

	var names [][]byte
	err := root.ForEach(func(k, v []byte) error {
		if v == nil {
			names = append(names, copyBytes(k))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := fn(name, root.Bucket(name)); err != nil {
			return err
		}
	}
	return nil
}

// dropMonitorBucket deletes the monitor's nested bucket and reports how
// many keys it held.
func dropMonitorBucket(tx *bbolt.Tx, parent []byte, monitorID string) (int, error) {
	b := monitorBucket(tx, parent, monitorID)
	if b == nil {
		return 0, nil
	}
	n := b.Stats().KeyN
	if err := tx.Bucket(parent).DeleteBucket([]byte(monitorID)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
		return 0, err
	}
	return n, nil
}

// scanChecks walks a monitor's checks oldest first within one transaction.
func scanChecks(tx *bbolt.Tx, monitorID string, fn func(check Check) error) error {
	b := monitorBucket(tx, ChecksBucket, monitorID)
	if b == nil {
		return nil
	}

	return b.ForEach(func(k, v []byte) error {
		var check Check
		if err := json.Unmarshal(v, &check); err != nil {
			return nil // Skip malformed entries
		}
		return fn(check)
	})
}

func reverseChecks(checks []Check) {
	for i, j := 0, len(checks)-1; i < j; i, j = i+1, j-1 {
		checks[i], checks[j] = checks[j], checks[i]
	}
}

// --- checks ---

func (s *BoltStore) FindChecks(ctx context.Context, monitorID string, r TimeRange) ([]Check, error) {
	var checks []Check

	err := s.db.View(func(tx *bbolt.Tx) error {
		return scanChecks(tx, monitorID, func(check Check) error {
			if r.Contains(check.CreatedAt) {
				checks = append(checks, check)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find checks: %w", err)
	}

	reverseChecks(checks)
	return checks, nil
}

func (s *BoltStore) FindCheckFacets(ctx context.Context, monitorID string, window TimeRange) (*CheckFacets, error) {
	facets := &CheckFacets{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return scanChecks(tx, monitorID, func(check Check) error {
			facets.All = append(facets.All, check)
			if window.Contains(check.CreatedAt) {
				facets.Windowed = append(facets.Windowed, check)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find check facets: %w", err)
	}

	reverseChecks(facets.All)
	reverseChecks(facets.Windowed)
	return facets, nil
}

func (s *BoltStore) LatestChecks(ctx context.Context, monitorID string, limit int) ([]Check, error) {
	var checks []Check

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := monitorBucket(tx, ChecksBucket, monitorID)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(checks) >= limit {
				break
			}
			var check Check
			if err := json.Unmarshal(v, &check); err != nil {
				continue
			}
			checks = append(checks, check)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read latest checks: %w", err)
	}

	return checks, nil
}

func (s *BoltStore) PageChecks(ctx context.Context, q CheckQuery) (*CheckPage, error) {
	var matched []Check

	err := s.db.View(func(tx *bbolt.Tx) error {
		return scanChecks(tx, q.MonitorID, func(check Check) error {
			if !q.Range.Contains(check.CreatedAt) {
				return nil
			}
			if q.Status != nil && check.Status != *q.Status {
				return nil
			}
			matched = append(matched, check)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to page checks: %w", err)
	}

	if q.Order != SortAsc {
		reverseChecks(matched)
	}

	start, end := PageBounds(len(matched), q.Page, q.PerPage)
	return &CheckPage{Items: matched[start:end], Total: len(matched)}, nil
}

func (s *BoltStore) CreateCheck(ctx context.Context, check *Check) error {
	if check.MonitorID == "" {
		return fmt.Errorf("%w: monitor_id is required", ErrInvalid)
	}
	if check.ID == "" {
		check.ID = uuid.New().String()
	}
	if check.CreatedAt.IsZero() {
		check.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(check)
		if err != nil {
			return fmt.Errorf("failed to marshal check: %w", err)
		}

		b, err := tx.Bucket(ChecksBucket).CreateBucketIfNotExists([]byte(check.MonitorID))
		if err != nil {
			return fmt.Errorf("failed to create check bucket for monitor %s: %w", check.MonitorID, err)
		}
		return b.Put(checkKey(check.CreatedAt, check.ID), data)
	})
}

// --- monitors ---

func (s *BoltStore) GetMonitor(ctx context.Context, id string) (*Monitor, error) {
	var monitor Monitor

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(MonitorsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("monitor %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &monitor)
	})

	if err != nil {
		return nil, err
	}
	return &monitor, nil
}

func (s *BoltStore) GetMonitors(ctx context.Context, ids []string) ([]Monitor, error) {
	monitors := make([]Monitor, 0, len(ids))

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(MonitorsBucket)
		for _, id := range ids {
			v := b.Get([]byte(id))
			if v == nil {
				continue
			}
			var monitor Monitor
			if err := json.Unmarshal(v, &monitor); err != nil {
				return fmt.Errorf("failed to unmarshal monitor %s: %w", id, err)
			}
			monitors = append(monitors, monitor)
		}
		return nil
	})

	return monitors, err
}

func (s *BoltStore) ListMonitors(ctx context.Context, filters MonitorFilters) ([]Monitor, error) {
	var monitors []Monitor

	err := s.eachMonitor(func(m Monitor) {
		if filters.Matches(m) {
			monitors = append(monitors, m)
		}
	})

	return monitors, err
}

func (s *BoltStore) PageMonitors(ctx context.Context, q MonitorQuery) (*MonitorPage, error) {
	var matched []Monitor

	err := s.eachMonitor(func(m Monitor) {
		if q.Matches(m) {
			matched = append(matched, m)
		}
	})
	if err != nil {
		return nil, err
	}

	SortMonitors(matched, q.Field, q.Order)
	start, end := PageBounds(len(matched), q.Page, q.PerPage)
	return &MonitorPage{Items: matched[start:end], Total: len(matched)}, nil
}

func (s *BoltStore) CountMonitors(ctx context.Context, teamID string) (*MonitorCounts, error) {
	monitors, err := s.ListMonitors(ctx, MonitorFilters{TeamID: teamID})
	if err != nil {
		return nil, err
	}
	return Tally(monitors), nil
}

func (s *BoltStore) eachMonitor(fn func(Monitor)) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(MonitorsBucket).ForEach(func(k, v []byte) error {
			var monitor Monitor
			if err := json.Unmarshal(v, &monitor); err != nil {
				return fmt.Errorf("failed to unmarshal monitor %s: %w", k, err)
			}
			fn(monitor)
			return nil
		})
	})
}

func (s *BoltStore) CreateMonitor(ctx context.Context, monitor *Monitor) error {
	if monitor.ID == "" {
		monitor.ID = uuid.New().String()
	}
	monitor.CreatedAt = time.Now()
	monitor.UpdatedAt = time.Now()

	return s.putJSON(MonitorsBucket, monitor.ID, monitor)
}

func (s *BoltStore) UpdateMonitor(ctx context.Context, monitor *Monitor) error {
	monitor.UpdatedAt = time.Now()
	return s.putJSON(MonitorsBucket, monitor.ID, monitor)
}

// DeleteMonitor removes the monitor together with its checks and windows.
func (s *BoltStore) DeleteMonitor(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(MonitorsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		if _, err := dropMonitorBucket(tx, ChecksBucket, id); err != nil {
			return err
		}
		_, err := dropMonitorBucket(tx, WindowsBucket, id)
		return err
	})
}

func (s *BoltStore) putJSON(bucket []byte, key string, value interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", bucket, err)
		}
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// --- maintenance windows ---

func (s *BoltStore) ListMaintenanceWindows(ctx context.Context, monitorID string) ([]MaintenanceWindow, error) {
	var windows []MaintenanceWindow

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := monitorBucket(tx, WindowsBucket, monitorID)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var window MaintenanceWindow
			if err := json.Unmarshal(v, &window); err != nil {
				return fmt.Errorf("failed to unmarshal maintenance window %s: %w", k, err)
			}
			windows = append(windows, window)
			return nil
		})
	})

	return windows, err
}

func (s *BoltStore) CreateMaintenanceWindow(ctx context.Context, window *MaintenanceWindow) error {
	if err := window.Validate(); err != nil {
		return err
	}
	if window.ID == "" {
		window.ID = uuid.New().String()
	}
	window.CreatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(window)
		if err != nil {
			return fmt.Errorf("failed to marshal maintenance window: %w", err)
		}
		b, err := tx.Bucket(WindowsBucket).CreateBucketIfNotExists([]byte(window.MonitorID))
		if err != nil {
			return fmt.Errorf("failed to create window bucket for monitor %s: %w", window.MonitorID, err)
		}
		return b.Put([]byte(window.ID), data)
	})
}

func (s *BoltStore) DeleteMaintenanceWindow(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		var owner []byte
		err := eachMonitorBucket(tx, WindowsBucket, func(monitorID []byte, b *bbolt.Bucket) error {
			if owner == nil && b.Get([]byte(id)) != nil {
				owner = copyBytes(monitorID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if owner == nil {
			return fmt.Errorf("maintenance window %s: %w", id, ErrNotFound)
		}
		return tx.Bucket(WindowsBucket).Bucket(owner).Delete([]byte(id))
	})
}

// --- status pages ---

func (s *BoltStore) GetStatusPageByURL(ctx context.Context, url string) (*StatusPage, error) {
	var page StatusPage

	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(PageURLsBucket).Get([]byte(url))
		if id == nil {
			return fmt.Errorf("status page %s: %w", url, ErrNotFound)
		}
		v := tx.Bucket(StatusPagesBucket).Get(id)
		if v == nil {
			return fmt.Errorf("status page %s: %w", url, ErrNotFound)
		}
		return json.Unmarshal(v, &page)
	})

	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *BoltStore) ListStatusPages(ctx context.Context) ([]StatusPage, error) {
	var pages []StatusPage

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(StatusPagesBucket).ForEach(func(k, v []byte) error {
			var page StatusPage
			if err := json.Unmarshal(v, &page); err != nil {
				return fmt.Errorf("failed to unmarshal status page %s: %w", k, err)
			}
			pages = append(pages, page)
			return nil
		})
	})

	return pages, err
}

func (s *BoltStore) CreateStatusPage(ctx context.Context, page *StatusPage) error {
	if page.URL == "" {
		return fmt.Errorf("%w: status page url is required", ErrInvalid)
	}
	if page.ID == "" {
		page.ID = uuid.New().String()
	}
	page.CreatedAt = time.Now()
	page.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		urls := tx.Bucket(PageURLsBucket)
		if existing := urls.Get([]byte(page.URL)); existing != nil && string(existing) != page.ID {
			return fmt.Errorf("%w: status page url %q already in use", ErrInvalid, page.URL)
		}
		return putPage(tx, page)
	})
}

func (s *BoltStore) UpdateStatusPage(ctx context.Context, page *StatusPage) error {
	page.UpdatedAt = time.Now()

	return s.db.Update(func(tx *bbolt.Tx) error {
		pages := tx.Bucket(StatusPagesBucket)
		v := pages.Get([]byte(page.ID))
		if v == nil {
			return fmt.Errorf("status page %s: %w", page.ID, ErrNotFound)
		}

		var previous StatusPage
		if err := json.Unmarshal(v, &previous); err == nil && previous.URL != page.URL {
			urls := tx.Bucket(PageURLsBucket)
			if existing := urls.Get([]byte(page.URL)); existing != nil && string(existing) != page.ID {
				return fmt.Errorf("%w: status page url %q already in use", ErrInvalid, page.URL)
			}
			if err := urls.Delete([]byte(previous.URL)); err != nil {
				return err
			}
		}
		return putPage(tx, page)
	})
}

func putPage(tx *bbolt.Tx, page *StatusPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal status page: %w", err)
	}
	if err := tx.Bucket(StatusPagesBucket).Put([]byte(page.ID), data); err != nil {
		return err
	}
	return tx.Bucket(PageURLsBucket).Put([]byte(page.URL), []byte(page.ID))
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
