package testutil

import (
	"testing"

	"tidy-go/internal/database"
)

// NewTestHashCache returns a migrated in-memory head-hash cache closed at test end.
func NewTestHashCache(t *testing.T) *database.SQLiteHashCache {
	t.Helper()

	cache, err := database.NewSQLiteHashCache(":memory:", FixedClock())
	if err != nil {
		t.Fatalf("creating test hash cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}
