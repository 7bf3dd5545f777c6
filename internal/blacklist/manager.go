// Package blacklist computes the directory trees the scanner must never enter:
// fixed platform defaults plus a user-editable YAML list.
package blacklist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"tidy-go/internal/tidy"
)

// execThreshold is how many executable-type children mark a directory as a program root.
const execThreshold = 20

// userFile is the on-disk shape of the user blacklist.
type userFile struct {
	Paths []string `yaml:"paths"`
}

// Manager reads, edits and recommends blacklist entries.
type Manager struct {
	goos         string
	home         string
	userPath     string
	programRoots []string
	logger       tidy.Logger
}

var _ tidy.Blacklist = (*Manager)(nil)

// NewManager creates a Manager for the running platform.
// userPath is the YAML file holding user entries.
func NewManager(userPath string, logger tidy.Logger) *Manager {
	home, _ := os.UserHomeDir()
	m := &Manager{
		goos:     runtime.GOOS,
		home:     home,
		userPath: userPath,
		logger:   logger,
	}
	for _, p := range tableFor(m.goos).programRoots {
		m.programRoots = append(m.programRoots, expand(p, home))
	}
	return m
}

// Defaults returns the read-only platform entries.
func (m *Manager) Defaults() []string {
	return DefaultBlacklist(m.goos, m.home)
}

// LoadUser returns the user entries. A missing or malformed file yields no entries.
func (m *Manager) LoadUser() []string {
	data, err := os.ReadFile(m.userPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("user blacklist unreadable, treating as empty", "path", m.userPath, "error", err)
		}
		return nil
	}

	var f userFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		m.logger.Warn("user blacklist malformed, treating as empty", "path", m.userPath, "error", err)
		return nil
	}
	return normalize(f.Paths)
}

// SaveUser replaces the user entries. Duplicates and blanks are dropped; order is kept.
func (m *Manager) SaveUser(paths []string) error {
	if err := os.MkdirAll(filepath.Dir(m.userPath), 0755); err != nil {
		return fmt.Errorf("creating blacklist directory: %w", err)
	}

	data, err := yaml.Marshal(userFile{Paths: normalize(paths)})
	if err != nil {
		return fmt.Errorf("encoding blacklist: %w", err)
	}
	if err := os.WriteFile(m.userPath, data, 0644); err != nil {
		return fmt.Errorf("writing blacklist %s: %w", m.userPath, err)
	}
	return nil
}

// Combined returns defaults and user entries, sorted and deduplicated.
func (m *Manager) Combined() []string {
	set := make(map[string]struct{})
	for _, p := range m.Defaults() {
		set[p] = struct{}{}
	}
	for _, p := range m.LoadUser() {
		set[p] = struct{}{}
	}
	return sortedKeys(set)
}

// Add appends paths to the user entries.
func (m *Manager) Add(paths ...string) error {
	return m.SaveUser(append(m.LoadUser(), paths...))
}

// Remove drops paths from the user entries. Returns how many were removed.
func (m *Manager) Remove(paths ...string) (int, error) {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range normalize(paths) {
		drop[p] = struct{}{}
	}

	current := m.LoadUser()
	kept := current[:0:0]
	for _, p := range current {
		if _, ok := drop[p]; !ok {
			kept = append(kept, p)
		}
	}
	if err := m.SaveUser(kept); err != nil {
		return 0, err
	}
	return len(current) - len(kept), nil
}

// Clear removes every user entry.
func (m *Manager) Clear() error {
	return m.SaveUser(nil)
}

// Recommend lightly scans one level into each root and suggests entries:
// directories with system-like names, installed program roots, and directories
// holding many executable-type files. The result includes defaults and user
// entries, sorted and deduplicated. Listing errors are skipped.
func (m *Manager) Recommend(roots []string) []string {
	table := tableFor(m.goos)
	systemNames := make(map[string]struct{}, len(table.systemNames))
	for _, n := range table.systemNames {
		systemNames[n] = struct{}{}
	}

	set := make(map[string]struct{})
	for _, p := range m.Defaults() {
		set[p] = struct{}{}
	}

	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			m.logger.Debug("skipping unreadable root", "path", root, "error", err)
			continue
		}
		for _, de := range entries {
			if !de.IsDir() {
				continue
			}
			p := filepath.Join(root, de.Name())
			if _, ok := systemNames[de.Name()]; ok {
				set[p] = struct{}{}
				continue
			}
			if m.countExecutables(p, table.execExts) >= execThreshold {
				set[p] = struct{}{}
			}
		}
	}

	for _, p := range m.programRoots {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			set[p] = struct{}{}
		}
	}

	for _, p := range m.LoadUser() {
		set[p] = struct{}{}
	}
	return sortedKeys(set)
}

// countExecutables counts immediate children with an executable extension,
// stopping once the threshold is reached.
func (m *Manager) countExecutables(dir string, exts []string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.logger.Debug("skipping unreadable directory", "path", dir, "error", err)
		return 0
	}

	count := 0
	for _, de := range entries {
		if !de.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		for _, e := range exts {
			if ext == e {
				count++
				break
			}
		}
		if count >= execThreshold {
			break
		}
	}
	return count
}

// normalize cleans, drops blanks, and deduplicates while keeping first-seen order.
func normalize(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
