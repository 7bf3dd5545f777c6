// Package journal performs batches of file moves and records each batch as one
// line of a JSON-lines undo log, so that any batch can later be reversed.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"tidy-go/internal/tidy"
)

// ErrEmptyBatch is returned by Apply when there is nothing to move.
var ErrEmptyBatch = errors.New("no moves to apply")

// ApplyError reports the move that stopped a batch. The moves completed
// before it are recorded in the log under BatchID.
type ApplyError struct {
	BatchID   string
	Move      tidy.Move
	Completed int
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("batch %s stopped after %d moves: %s -> %s: %v",
		e.BatchID, e.Completed, e.Move.Src, e.Move.Dst, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Journal implements tidy.Journal over a log file.
// It assumes a single writer; concurrent use on the same log is not supported.
type Journal struct {
	logPath string
	clock   tidy.Clock
	logger  tidy.Logger
}

var _ tidy.Journal = (*Journal)(nil)

func New(logPath string, clock tidy.Clock, logger tidy.Logger) *Journal {
	return &Journal{logPath: logPath, clock: clock, logger: logger}
}

// Path returns the log file location.
func (j *Journal) Path() string {
	return j.logPath
}

// Apply executes moves in order, stopping at the first failure, and appends
// one record holding every pair that completed. The batch id is returned
// even on failure so the partial batch can be rolled back.
func (j *Journal) Apply(moves *tidy.MoveMap, mode tidy.Mode) (string, error) {
	if moves.Len() == 0 {
		return "", ErrEmptyBatch
	}

	existing, err := readRecords(j.logPath)
	if err != nil {
		return "", err
	}

	now := j.clock.Now().UTC()
	rec := tidy.BatchRecord{
		ID:          uniqueID(batchID(now), existing),
		Time:        now.Format(time.RFC3339),
		Mode:        mode,
		Moves:       []tidy.Move{},
		CreatedDirs: []string{},
	}
	j.logger.Info("applying batch", "batch_id", rec.ID, "mode", mode, "moves", moves.Len())

	var applyErr *ApplyError
	for src, dst := range moves.All() {
		if err := j.applyOne(&rec, src, dst, mode); err != nil {
			applyErr = &ApplyError{
				BatchID:   rec.ID,
				Move:      tidy.Move{Src: src, Dst: dst},
				Completed: len(rec.Moves),
				Err:       err,
			}
			j.logger.Error("batch stopped", "batch_id", rec.ID, "src", src, "dst", dst, "completed", len(rec.Moves), "error", err)
			break
		}
		rec.Moves = append(rec.Moves, tidy.Move{Src: src, Dst: dst})
	}
	slices.Sort(rec.CreatedDirs)

	if err := appendRecord(j.logPath, rec); err != nil {
		if applyErr != nil {
			return rec.ID, fmt.Errorf("%w (and the batch could not be logged: %v)", applyErr, err)
		}
		return rec.ID, err
	}

	if applyErr != nil {
		return rec.ID, applyErr
	}
	j.logger.Info("batch applied", "batch_id", rec.ID, "moves", len(rec.Moves), "created_dirs", len(rec.CreatedDirs))
	return rec.ID, nil
}

func (j *Journal) applyOne(rec *tidy.BatchRecord, src, dst string, mode tidy.Mode) error {
	parent := filepath.Dir(dst)
	if _, err := os.Stat(parent); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", parent, err)
		}
		rec.CreatedDirs = append(rec.CreatedDirs, parent)
	}

	switch mode {
	case tidy.ModeCopy:
		return copyFile(src, dst)
	default:
		return moveFile(src, dst)
	}
}

// Read returns every batch, most recent first.
func (j *Journal) Read() ([]tidy.BatchRecord, error) {
	records, err := readRecords(j.logPath)
	if err != nil {
		return nil, err
	}
	out := make([]tidy.BatchRecord, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out, nil
}

// RollbackBatch reverses one batch. Pairs whose destination no longer exists
// are skipped. On success the record is removed from the log; an unknown id
// restores nothing and leaves the log untouched. If a pair cannot be moved
// back, the record stays in the log and the error is returned.
func (j *Journal) RollbackBatch(batchID string) (int, error) {
	records, err := readRecords(j.logPath)
	if err != nil {
		return 0, err
	}

	idx := -1
	for i, r := range records {
		if r.ID == batchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		j.logger.Warn("batch not found in undo log", "batch_id", batchID)
		return 0, nil
	}
	rec := records[idx]

	restored := 0
	for i := len(rec.Moves) - 1; i >= 0; i-- {
		m := rec.Moves[i]
		if _, err := os.Lstat(m.Dst); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				j.logger.Debug("rollback skipped missing destination", "batch_id", rec.ID, "dst", m.Dst)
				continue
			}
			return restored, fmt.Errorf("rolling back batch %s: checking %s: %w", rec.ID, m.Dst, err)
		}

		if err := reverse(rec.Mode, m); err != nil {
			j.logger.Error("rollback stopped", "batch_id", rec.ID, "src", m.Src, "dst", m.Dst, "error", err)
			return restored, fmt.Errorf("rolling back batch %s: %s -> %s: %w", rec.ID, m.Dst, m.Src, err)
		}
		restored++
	}

	// Sorted order puts a directory before anything nested in it.
	for i := len(rec.CreatedDirs) - 1; i >= 0; i-- {
		dir := rec.CreatedDirs[i]
		if removeIfEmpty(dir) {
			removeIfEmpty(filepath.Dir(dir))
		}
	}

	remaining := append(records[:idx:idx], records[idx+1:]...)
	if err := rewriteRecords(j.logPath, remaining); err != nil {
		return restored, fmt.Errorf("rolling back batch %s: %w", rec.ID, err)
	}

	j.logger.Info("batch rolled back", "batch_id", rec.ID, "restored", restored)
	return restored, nil
}

// RollbackRecent rolls back the count most recent batches, newest first.
// count <= 0 rolls back every batch. Returns the total restored.
func (j *Journal) RollbackRecent(count int) (int, error) {
	records, err := j.Read()
	if err != nil {
		return 0, err
	}
	if count > 0 && count < len(records) {
		records = records[:count]
	}

	total := 0
	for _, r := range records {
		n, err := j.RollbackBatch(r.ID)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func reverse(mode tidy.Mode, m tidy.Move) error {
	if mode == tidy.ModeCopy {
		// The original never moved; dropping the copy undoes the batch.
		return os.Remove(m.Dst)
	}
	if err := os.MkdirAll(filepath.Dir(m.Src), 0755); err != nil {
		return err
	}
	return moveFile(m.Dst, m.Src)
}

func removeIfEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return false
	}
	return os.Remove(dir) == nil
}

// batchID formats t as a compact UTC timestamp with microseconds.
func batchID(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("20060102T150405.000000Z"), ".", "")
}

// uniqueID appends -2, -3, ... until id is not used by any record.
func uniqueID(id string, records []tidy.BatchRecord) string {
	used := make(map[string]struct{}, len(records))
	for _, r := range records {
		used[r.ID] = struct{}{}
	}
	if _, ok := used[id]; !ok {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "-" + strconv.Itoa(n)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}
