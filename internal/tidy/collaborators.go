package tidy

import (
	"context"
	"time"
)

// MetadataPeeker inspects format-specific metadata cheaply.
// It never fails: absence or errors yield ("", 0, "meta:none").
type MetadataPeeker interface {
	Peek(path string) (label string, confidence float64, reason string)
}

// HashCache remembers head hashes for files that have not changed.
type HashCache interface {
	// GetHeadHash returns the cached hash if path still has the given size and mtime.
	GetHeadHash(path string, size int64, modTime time.Time) (string, bool, error)
	PutHeadHash(path string, size int64, modTime time.Time, hash string) error
}

// FolderOpener reveals a directory in the platform file manager. Best effort.
type FolderOpener interface {
	Open(path string) error
}

// RuleGenerator turns a natural-language description into rule document text.
type RuleGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Blacklist supplies the set of directory trees the scanner must not enter.
type Blacklist interface {
	Combined() []string
}
