// Package rules loads the declarative rule file and renders rule destinations.
//
// A rule maps a classification label (its name) to a destination template
// relative to the organize destination. Match predicates are validated at
// load time; they are used to test which rules a filename would satisfy.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is wrapped by every validation failure.
var ErrInvalidRule = errors.New("invalid rule")

// Conflict decides what happens when a destination is already taken.
type Conflict string

const (
	ConflictUnset     Conflict = ""
	ConflictOverwrite Conflict = "overwrite"
	ConflictRename    Conflict = "rename"
	ConflictSkip      Conflict = "skip"
)

// ParseConflict validates a conflict policy name. Empty is allowed.
func ParseConflict(s string) (Conflict, error) {
	switch c := Conflict(strings.ToLower(strings.TrimSpace(s))); c {
	case ConflictUnset, ConflictOverwrite, ConflictRename, ConflictSkip:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown conflict policy %q", ErrInvalidRule, s)
	}
}

// Rule is a validated rule.
type Rule struct {
	Name       string
	Predicates []Predicate
	Dest       string
	Conflict   Conflict
}

// Accepts reports whether filename satisfies every predicate.
// A rule without predicates accepts nothing.
func (r Rule) Accepts(filename string) bool {
	if len(r.Predicates) == 0 {
		return false
	}
	for _, p := range r.Predicates {
		if !p.Match(filename) {
			return false
		}
	}
	return true
}

// Load reads and validates the rule file at path. A missing file yields no rules.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading rules %s: %w", path, err)
	}
	return rules, nil
}

// Parse decodes YAML rule text. Unknown keys are rejected.
func Parse(data []byte) ([]Rule, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return Compile(doc)
}

// Compile validates a decoded document.
func Compile(doc Document) ([]Rule, error) {
	rules := make([]Rule, 0, len(doc.Rules))
	seen := make(map[string]struct{}, len(doc.Rules))

	for i, spec := range doc.Rules {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRule, name)
		}
		seen[name] = struct{}{}

		dest := strings.TrimSpace(spec.Dest)
		if dest == "" {
			dest = "Unsorted"
		}
		if err := validateDest(dest); err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		conflict, err := ParseConflict(spec.Options.Conflict)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		preds, err := compileMatch(spec.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		rules = append(rules, Rule{Name: name, Predicates: preds, Dest: dest, Conflict: conflict})
	}
	return rules, nil
}

// RuleMap indexes rules by name.
func RuleMap(rules []Rule) map[string]Rule {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.Name] = r
	}
	return m
}

// Matches returns the names of rules whose predicates accept filename, in rule order.
func Matches(rules []Rule, filename string) []string {
	var names []string
	for _, r := range rules {
		if r.Accepts(filename) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Render returns the relative destination for filename under rule, with date
// placeholders taken from mtime in local time.
func Render(rule Rule, filename string, mtime time.Time) string {
	rel, err := expand(rule.Dest, tokens(rule, filename, mtime))
	if err != nil {
		// Dest was validated by Compile; an unvalidated Rule falls back to its literal text.
		rel = rule.Dest
	}
	return filepath.Join(filepath.FromSlash(rel), filename)
}

func tokens(rule Rule, filename string, mtime time.Time) map[string]string {
	t := mtime.Local()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		ext = "noext"
	}
	return map[string]string{
		"year":  fmt.Sprintf("%04d", t.Year()),
		"month": fmt.Sprintf("%02d", int(t.Month())),
		"day":   fmt.Sprintf("%02d", t.Day()),
		"ext":   ext,
		"rule":  rule.Name,
	}
}

func validateDest(dest string) error {
	sample, err := expand(dest, map[string]string{
		"year": "2000", "month": "01", "day": "01", "ext": "txt", "rule": "rule",
	})
	if err != nil {
		return err
	}
	if filepath.IsAbs(sample) || strings.HasPrefix(sample, "/") || !filepath.IsLocal(filepath.FromSlash(sample)) {
		return fmt.Errorf("%w: dest %q must be a relative path inside the destination", ErrInvalidRule, dest)
	}
	return nil
}

// expand substitutes {name} placeholders. "{{" and "}}" are literal braces.
func expand(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed placeholder in %q", ErrInvalidRule, tmpl)
			}
			key := tmpl[i+1 : i+1+end]
			v, ok := values[key]
			if !ok {
				return "", fmt.Errorf("%w: unknown placeholder {%s} in %q", ErrInvalidRule, key, tmpl)
			}
			b.WriteString(v)
			i += end + 1
		case c == '}':
			return "", fmt.Errorf("%w: unmatched '}' in %q", ErrInvalidRule, tmpl)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
