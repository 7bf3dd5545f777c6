package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tidy-go/internal/tidy"
)

// readRecords returns the log's records oldest first. A missing log is empty.
// Blank lines are ignored; any other unparsable line is an error.
func readRecords(path string) ([]tidy.BatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening undo log: %w", err)
	}
	defer f.Close()

	var records []tidy.BatchRecord
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var rec tidy.BatchRecord
			if jerr := json.Unmarshal(line, &rec); jerr != nil {
				return nil, fmt.Errorf("log %s line %d: %w", path, lineNo, jerr)
			}
			if rec.ID == "" {
				return nil, fmt.Errorf("log %s line %d: record has no id", path, lineNo)
			}
			records = append(records, rec)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("reading undo log: %w", err)
		}
	}
}

// appendRecord writes rec as one line in a single write.
func appendRecord(path string, rec tidy.BatchRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding batch %s: %w", rec.ID, err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating undo log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening undo log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("appending batch %s: %w", rec.ID, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing undo log: %w", err)
	}
	return f.Close()
}

// rewriteRecords replaces the log with records using temp file + rename,
// so a crash leaves either the old or the new log.
func rewriteRecords(path string, records []tidy.BatchRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding batch %s: %w", r.ID, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".undo-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write undo log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync undo log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace undo log: %w", err)
	}

	success = true
	return nil
}
