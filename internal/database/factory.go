package database

import (
	"fmt"
	"path/filepath"

	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

// CacheFileName is the database file created under cache.data_dir.
const CacheFileName = "cache.db"

// NewHashCacheFromConfig creates the head-hash cache selected by cfg.Type.
// Type "none" disables caching and returns nil without error.
func NewHashCacheFromConfig(cfg config.CacheConfig, clock tidy.Clock) (*SQLiteHashCache, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite cache")
		}
		return NewSQLiteHashCache(filepath.Join(cfg.DataDir, CacheFileName), clock)
	case "memory":
		return NewSQLiteHashCache(":memory:", clock)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
