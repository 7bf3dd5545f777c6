package fs

import (
	"iter"
	"os"
	"path/filepath"

	"tidy-go/internal/tidy"
)

// ScanOptions bounds a traversal.
type ScanOptions struct {
	// ExcludedRoots are directory trees that are never entered.
	ExcludedRoots []string
	// ExcludedDirNames are directory name patterns that are skipped at any depth.
	ExcludedDirNames []string
	// MaxDepth is the deepest level yielded; the root's children are level 1.
	MaxDepth int
}

// Skip records an entry or subtree the scanner passed over.
type Skip struct {
	Path   string
	Reason string
	Err    error
}

// Skip reasons.
const (
	SkipResolve     = "resolve"
	SkipBlacklisted = "blacklisted"
	SkipExcluded    = "excluded"
	SkipList        = "list"
	SkipStat        = "stat"
	SkipSpecial     = "special"
)

// Diagnostics collects skips from a scan. A nil *Diagnostics discards them.
type Diagnostics struct {
	Skips []Skip
}

func (d *Diagnostics) add(path, reason string, err error) {
	if d == nil {
		return
	}
	d.Skips = append(d.Skips, Skip{Path: path, Reason: reason, Err: err})
}

// Count returns the number of skips with the given reason.
func (d *Diagnostics) Count(reason string) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Skips {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

type frame struct {
	dir   string
	depth int
}

const specialMode = os.ModeDevice | os.ModeNamedPipe | os.ModeSocket | os.ModeIrregular

// Scan walks root depth-first with an explicit stack and yields every file and
// directory that is not excluded. Symlinks are reported as files and never followed.
// Per-entry and per-directory errors are recorded in diags and skipped.
// The sequence is single-use in spirit: each range re-reads the filesystem.
func Scan(root string, opts ScanOptions, diags *Diagnostics) iter.Seq[tidy.FileEntry] {
	return func(yield func(tidy.FileEntry) bool) {
		if opts.MaxDepth < 1 {
			return
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			diags.add(root, SkipResolve, err)
			return
		}
		if realRoot, err := filepath.EvalSymlinks(absRoot); err == nil {
			absRoot = realRoot
		}

		excluded := make([]string, 0, len(opts.ExcludedRoots))
		for _, r := range opts.ExcludedRoots {
			excluded = append(excluded, CanonicalPath(r))
		}
		if WithinAny(absRoot, excluded) {
			diags.add(absRoot, SkipBlacklisted, nil)
			return
		}

		names := opts.ExcludedDirNames
		if extra, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName)); err == nil {
			names = append(append([]string{}, names...), extra...)
		}
		matcher := NewIgnoreMatcher(names)

		stack := []frame{{dir: absRoot, depth: 0}}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			dirEntries, err := os.ReadDir(cur.dir)
			if err != nil {
				diags.add(cur.dir, SkipList, err)
				continue
			}

			depth := cur.depth + 1
			for _, de := range dirEntries {
				p := filepath.Join(cur.dir, de.Name())

				// DirEntry.Info does not follow symlinks.
				info, err := de.Info()
				if err != nil {
					diags.add(p, SkipStat, err)
					continue
				}

				if info.IsDir() {
					rel, _ := filepath.Rel(absRoot, p)
					if matcher.Match(rel) {
						diags.add(p, SkipExcluded, nil)
						continue
					}
					if WithinAny(p, excluded) {
						diags.add(p, SkipBlacklisted, nil)
						continue
					}
					if !yield(tidy.FileEntry{Path: p, IsDir: true, ModTime: info.ModTime()}) {
						return
					}
					if depth < opts.MaxDepth {
						stack = append(stack, frame{dir: p, depth: depth})
					}
					continue
				}

				if info.Mode()&specialMode != 0 {
					diags.add(p, SkipSpecial, nil)
					continue
				}
				if !yield(tidy.FileEntry{Path: p, Size: info.Size(), ModTime: info.ModTime()}) {
					return
				}
			}
		}
	}
}

// Collect drains a scan into a slice.
func Collect(seq iter.Seq[tidy.FileEntry]) []tidy.FileEntry {
	var entries []tidy.FileEntry
	for e := range seq {
		entries = append(entries, e)
	}
	return entries
}
