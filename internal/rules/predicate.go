package rules

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Predicate is one validated match condition on a filename.
type Predicate interface {
	Match(filename string) bool
	String() string
}

// ExtensionMatch accepts filenames whose lowercase extension is in the set.
type ExtensionMatch struct {
	Extensions map[string]struct{}
}

func (m ExtensionMatch) Match(filename string) bool {
	_, ok := m.Extensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func (m ExtensionMatch) String() string {
	exts := make([]string, 0, len(m.Extensions))
	for e := range m.Extensions {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return fmt.Sprintf("ext%v", exts)
}

// NamePatternMatch accepts filenames that contain any pattern, case-insensitively.
// Patterns with glob metacharacters are matched as globs against the whole name.
type NamePatternMatch struct {
	Patterns []string
}

func (m NamePatternMatch) Match(filename string) bool {
	name := strings.ToLower(filename)
	for _, p := range m.Patterns {
		if strings.ContainsAny(p, "*?[") {
			if ok, err := filepath.Match(p, name); err == nil && ok {
				return true
			}
			continue
		}
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

func (m NamePatternMatch) String() string {
	return fmt.Sprintf("name_like%v", m.Patterns)
}

func compileMatch(spec MatchSpec) ([]Predicate, error) {
	var preds []Predicate

	if len(spec.Ext) > 0 {
		exts := make(map[string]struct{}, len(spec.Ext))
		for _, e := range spec.Ext {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" || e == "." {
				return nil, fmt.Errorf("%w: empty extension", ErrInvalidRule)
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts[e] = struct{}{}
		}
		preds = append(preds, ExtensionMatch{Extensions: exts})
	}

	if len(spec.NameLike) > 0 {
		patterns := make([]string, 0, len(spec.NameLike))
		for _, p := range spec.NameLike {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				return nil, fmt.Errorf("%w: empty name_like pattern", ErrInvalidRule)
			}
			if _, err := filepath.Match(p, ""); err != nil {
				return nil, fmt.Errorf("%w: bad name_like pattern %q", ErrInvalidRule, p)
			}
			patterns = append(patterns, p)
		}
		preds = append(preds, NamePatternMatch{Patterns: patterns})
	}

	return preds, nil
}
