package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/database/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.ExtendedStore {
		store, err := New(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("failed to create sqlite store: %v", err)
		}
		return store
	})
}

func TestStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vantage.sqlite")
	store, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New(%s): %v", path, err)
	}
	defer store.Close()

	stats, err := store.GetDatabaseStats(context.Background())
	if err != nil {
		t.Fatalf("GetDatabaseStats: %v", err)
	}
	if stats.Backend != "sqlite" || stats.DatabaseSize == 0 {
		t.Errorf("stats = %+v", stats)
	}
}
