package database_test

import (
	"path/filepath"
	"testing"

	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/database/storetest"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.ExtendedStore {
		store, err := database.NewExtendedBoltStore(filepath.Join(t.TempDir(), "data", "vantage.db"))
		if err != nil {
			t.Fatalf("NewExtendedBoltStore: %v", err)
		}
		return store
	})
}
