// internal/database/boltstore_extended.go - retention and maintenance operations
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

// ExtendedBoltStore implements ExtendedStore interface
type ExtendedBoltStore struct {
	*BoltStore
}

// NewExtendedBoltStore creates a new extended BoltDB store
func NewExtendedBoltStore(path string) (*ExtendedBoltStore, error) {
	baseStore, err := NewBoltStore(path)
	if err != nil {
		return nil, err
	}

	return &ExtendedBoltStore{BoltStore: baseStore}, nil
}

// DeleteChecksForMonitor removes every check recorded for a monitor
func (s *ExtendedBoltStore) DeleteChecksForMonitor(ctx context.Context, monitorID string) (int, error) {
	var deleted int

	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		deleted, err = dropMonitorBucket(tx, ChecksBucket, monitorID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete checks for monitor %s: %w", monitorID, err)
	}

	logrus.WithFields(logrus.Fields{
		"monitor_id":     monitorID,
		"checks_deleted": deleted,
	}).Debug("Deleted monitor check history")

	return deleted, nil
}

// DeleteChecksBefore removes checks created before cutoffTime
func (s *ExtendedBoltStore) DeleteChecksBefore(ctx context.Context, cutoffTime time.Time) (int, error) {
	deletedCount := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		var emptied [][]byte

		err := eachMonitorBucket(tx, ChecksBucket, func(monitorID []byte, b *bbolt.Bucket) error {
			var keysToDelete [][]byte

			// Keys are time ordered, so the first young check ends the scan.
			cursor := b.Cursor()
			for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
				createdAt, ok := checkKeyTime(k)
				if !ok {
					continue
				}
				if !createdAt.Before(cutoffTime) {
					break
				}
				keysToDelete = append(keysToDelete, copyBytes(k))
			}

			for _, key := range keysToDelete {
				if err := b.Delete(key); err != nil {
					logrus.WithError(err).Error("Failed to delete check entry")
					continue
				}
				deletedCount++
			}

			if k, _ := b.Cursor().First(); k == nil {
				emptied = append(emptied, copyBytes(monitorID))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, name := range emptied {
			if err := tx.Bucket(ChecksBucket).DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to delete old checks: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"deleted_count": deletedCount,
		"cutoff_time":   cutoffTime,
	}).Info("Deleted old checks")

	return deletedCount, nil
}

// GetDatabaseStats returns information about database size and health
func (s *ExtendedBoltStore) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{Backend: "boltdb"}

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalMonitors = tx.Bucket(MonitorsBucket).Stats().KeyN
		stats.TotalStatusPages = tx.Bucket(StatusPagesBucket).Stats().KeyN

		err := eachMonitorBucket(tx, WindowsBucket, func(_ []byte, b *bbolt.Bucket) error {
			stats.TotalMaintenanceWindow += b.Stats().KeyN
			return nil
		})
		if err != nil {
			return err
		}

		return eachMonitorBucket(tx, ChecksBucket, func(_ []byte, b *bbolt.Bucket) error {
			stats.TotalChecks += b.Stats().KeyN

			cursor := b.Cursor()
			if k, _ := cursor.First(); k != nil {
				if createdAt, ok := checkKeyTime(k); ok && (stats.OldestCheck.IsZero() || createdAt.Before(stats.OldestCheck)) {
					stats.OldestCheck = createdAt
				}
			}
			if k, _ := cursor.Last(); k != nil {
				if createdAt, ok := checkKeyTime(k); ok && createdAt.After(stats.NewestCheck) {
					stats.NewestCheck = createdAt
				}
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	// Get file size
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}

// CompactDatabase rewrites the database into a fresh file and swaps it in
func (s *ExtendedBoltStore) CompactDatabase(ctx context.Context) error {
	logrus.Info("Starting database compaction")

	backupPath := s.path + ".compact.tmp"

	newDB, err := bbolt.Open(backupPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	copyErr := s.db.View(func(oldTx *bbolt.Tx) error {
		return newDB.Update(func(newTx *bbolt.Tx) error {
			for _, bucketName := range allBuckets {
				newBucket, err := newTx.CreateBucketIfNotExists(bucketName)
				if err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
				}

				oldBucket := oldTx.Bucket(bucketName)
				if oldBucket == nil {
					continue
				}

				if err := copyBucket(oldBucket, newBucket); err != nil {
					return err
				}
			}
			return nil
		})
	})

	newDB.Close()
	if copyErr != nil {
		os.Remove(backupPath)
		return fmt.Errorf("failed to copy data to compact database: %w", copyErr)
	}

	oldPath := s.path
	s.db.Close()

	if err := os.Rename(backupPath, oldPath); err != nil {
		os.Remove(backupPath)
		return fmt.Errorf("failed to replace database: %w", err)
	}

	// Reopen the compacted database
	s.db, err = bbolt.Open(oldPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to reopen compacted database: %w", err)
	}

	logrus.Info("Database compaction completed successfully")
	return nil
}

// copyBucket copies src into dst, descending into nested monitor buckets.
func copyBucket(src, dst *bbolt.Bucket) error {
	return src.ForEach(func(k, v []byte) error {
		if v == nil {
			child, err := dst.CreateBucketIfNotExists(copyBytes(k))
			if err != nil {
				return fmt.Errorf("failed to create nested bucket %s: %w", k, err)
			}
			return copyBucket(src.Bucket(k), child)
		}
		if err := dst.Put(copyBytes(k), copyBytes(v)); err != nil {
			return fmt.Errorf("failed to copy data: %w", err)
		}
		return nil
	})
}

// copyBytes creates a copy of a byte slice
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
