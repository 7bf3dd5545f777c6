package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tidy-go/internal/database/migrations"
	"tidy-go/internal/tidy"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHashCache implements tidy.HashCache on a SQLite table keyed by path.
// An entry is valid only while the file keeps the size and mtime it was hashed at.
type SQLiteHashCache struct {
	db    *sql.DB
	path  string
	clock tidy.Clock
}

var _ tidy.HashCache = (*SQLiteHashCache)(nil)

// NewSQLiteHashCache opens (creating if needed) the cache database and migrates it.
// path can be a file path or ":memory:".
func NewSQLiteHashCache(path string, clock tidy.Clock) (*SQLiteHashCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	if clock == nil {
		clock = tidy.RealClock{}
	}
	return &SQLiteHashCache{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
// A single connection is used so ":memory:" databases stay shared.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	return db, nil
}

// GetHeadHash returns the cached hash when path was hashed at exactly size and modTime.
func (c *SQLiteHashCache) GetHeadHash(path string, size int64, modTime time.Time) (string, bool, error) {
	var hash string
	err := c.db.QueryRow(
		`SELECT head_hash FROM head_hashes WHERE path = ? AND size = ? AND mtime_ns = ?`,
		path, size, modTime.UnixNano(),
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up head hash for %s: %w", path, err)
	}
	return hash, true, nil
}

// PutHeadHash stores or replaces the entry for path.
func (c *SQLiteHashCache) PutHeadHash(path string, size int64, modTime time.Time, hash string) error {
	_, err := c.db.Exec(
		`INSERT INTO head_hashes (path, size, mtime_ns, head_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mtime_ns = excluded.mtime_ns,
		   head_hash = excluded.head_hash,
		   updated_at = excluded.updated_at`,
		path, size, modTime.UnixNano(), hash, c.clock.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing head hash for %s: %w", path, err)
	}
	return nil
}

// Prune deletes entries not refreshed since before. Returns the number removed.
func (c *SQLiteHashCache) Prune(before time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM head_hashes WHERE updated_at < ?`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning head hashes: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of cached entries.
func (c *SQLiteHashCache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM head_hashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting head hashes: %w", err)
	}
	return n, nil
}

// Path returns the database location.
func (c *SQLiteHashCache) Path() string {
	return c.path
}

func (c *SQLiteHashCache) Close() error {
	return c.db.Close()
}
