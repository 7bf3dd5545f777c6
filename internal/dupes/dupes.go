// Package dupes finds duplicate-candidate files by size and head hash.
//
// Only the first HeadSize bytes of each file are hashed, so two files in the
// same group are likely but not guaranteed to be identical.
package dupes

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"tidy-go/internal/tidy"
	"tidy-go/internal/worker"
)

// HeadSize is the number of leading bytes that are hashed.
const HeadSize = 1 << 20

// Key identifies a duplicate group.
type Key struct {
	Size     int64
	HeadHash string
}

// Group is one duplicate group with members in input order.
type Group struct {
	Key
	Files []tidy.FileEntry
}

// HeadHash returns the hex SHA-1 of at most the first HeadSize bytes of path.
func HeadHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, io.LimitReader(f, HeadSize)); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Detector hashes files on a worker pool, consulting an optional cache.
type Detector struct {
	workers int
	cache   tidy.HashCache
	logger  tidy.Logger

	// Progress, if set, is called after each file is hashed or found in the cache.
	Progress func(done, total int)
}

// NewDetector creates a Detector. cache may be nil.
func NewDetector(workers int, cache tidy.HashCache, logger tidy.Logger) *Detector {
	return &Detector{workers: workers, cache: cache, logger: logger}
}

// FindDuplicates groups files by (size, head hash) and returns only groups
// with at least two members. Directories are ignored. Files that cannot be
// read are left out of every group. The only error is context cancellation.
func (d *Detector) FindDuplicates(ctx context.Context, files []tidy.FileEntry) (map[Key][]tidy.FileEntry, error) {
	// A file with a unique size cannot have a duplicate.
	sizes := make(map[int64]int)
	for _, f := range files {
		if !f.IsDir {
			sizes[f.Size]++
		}
	}
	var candidates []int
	for i, f := range files {
		if !f.IsDir && sizes[f.Size] > 1 {
			candidates = append(candidates, i)
		}
	}

	hashes := make(map[int]string, len(candidates))
	done := 0
	total := len(candidates)
	report := func() {
		done++
		if d.Progress != nil {
			d.Progress(done, total)
		}
	}

	var pending []worker.Job
	for _, i := range candidates {
		f := files[i]
		if hash, ok := d.cached(f); ok {
			hashes[i] = hash
			report()
			continue
		}
		pending = append(pending, worker.Job{Index: i, Path: f.Path})
	}

	if len(pending) > 0 {
		pool := worker.NewPool(ctx, d.workers, HeadHash, d.logger)
		pool.Start()
		go func() {
			for _, job := range pending {
				if !pool.Submit(job) {
					break
				}
			}
			pool.Shutdown()
		}()

		for res := range pool.Results() {
			report()
			if res.Err != nil {
				d.logger.Debug("skipping unreadable file", "path", res.Path, "error", res.Err)
				continue
			}
			hashes[res.Index] = res.Hash
			d.store(files[res.Index], res.Hash)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	groups := make(map[Key][]tidy.FileEntry)
	for _, i := range candidates {
		hash, ok := hashes[i]
		if !ok {
			continue
		}
		k := Key{Size: files[i].Size, HeadHash: hash}
		groups[k] = append(groups[k], files[i])
	}
	for k, members := range groups {
		if len(members) < 2 {
			delete(groups, k)
		}
	}
	d.logger.Debug("duplicate scan finished", "candidates", total, "groups", len(groups))
	return groups, nil
}

func (d *Detector) cached(f tidy.FileEntry) (string, bool) {
	if d.cache == nil {
		return "", false
	}
	hash, ok, err := d.cache.GetHeadHash(f.Path, f.Size, f.ModTime)
	if err != nil {
		d.logger.Warn("head hash cache lookup failed", "path", f.Path, "error", err)
		return "", false
	}
	return hash, ok
}

func (d *Detector) store(f tidy.FileEntry, hash string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.PutHeadHash(f.Path, f.Size, f.ModTime, hash); err != nil {
		d.logger.Warn("head hash cache update failed", "path", f.Path, "error", err)
	}
}

// Sorted returns groups largest file size first, then by hash.
func Sorted(groups map[Key][]tidy.FileEntry) []Group {
	out := make([]Group, 0, len(groups))
	for k, files := range groups {
		out = append(out, Group{Key: k, Files: files})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].HeadHash < out[j].HeadHash
	})
	return out
}

// Wasted returns the bytes that would be freed by keeping one file per group.
func Wasted(groups []Group) int64 {
	var n int64
	for _, g := range groups {
		n += g.Size * int64(len(g.Files)-1)
	}
	return n
}
