package tidy

import (
	"path/filepath"
	"time"
)

// FileEntry is one file or directory discovered by the scanner.
// Entries are immutable once produced; identity is the path.
type FileEntry struct {
	Path    string // absolute, filesystem-native
	IsDir   bool
	Size    int64 // 0 for directories
	ModTime time.Time
}

// Name returns the base name of the entry.
func (e FileEntry) Name() string {
	return filepath.Base(e.Path)
}

// Dir returns the directory containing the entry.
func (e FileEntry) Dir() string {
	return filepath.Dir(e.Path)
}

// Files returns only the non-directory entries, preserving order.
func Files(entries []FileEntry) []FileEntry {
	files := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files
}

// Built-in labels produced by the classifier. ReviewLabel is the fallback
// for files nothing could place confidently.
const (
	PhotoLabel   = "photos_by_date"
	ReceiptLabel = "receipts_pdf"
	MediaLabel   = "media_by_tag"
	ReviewLabel  = "others_review"
)

// Recommendation is the classifier's decision for one file.
// Rule is empty when no label applies.
type Recommendation struct {
	Rule   string
	Score  float64
	Reason string
}

// Labeled reports whether the recommendation carries a label.
func (r Recommendation) Labeled() bool {
	return r.Rule != ""
}
