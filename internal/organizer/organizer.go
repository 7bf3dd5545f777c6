// Package organizer runs the tidy pipeline: scan, classify, resolve
// destinations, apply conflict policy and plan; then apply, list and roll back
// batches through the journal.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tidy-go/internal/classify"
	"tidy-go/internal/config"
	"tidy-go/internal/dupes"
	"tidy-go/internal/fs"
	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// Options holds the settings the pipeline needs from configuration.
type Options struct {
	MaxDepth         int
	ExcludedDirNames []string
	// Extensions limits classification to these lowercase extensions; empty means all.
	Extensions      []string
	Destination     string
	RulesPath       string
	Strategy        string
	UseMeta         bool
	DefaultConflict rules.Conflict
	OpenAfterApply  bool
}

// OptionsFromConfig builds Options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	conflict, err := rules.ParseConflict(cfg.Organize.DefaultConflict)
	if err != nil {
		return Options{}, fmt.Errorf("organize.default_conflict: %w", err)
	}
	return Options{
		MaxDepth:         cfg.Scan.MaxDepth,
		ExcludedDirNames: cfg.Scan.ExcludeDirNames,
		Extensions:       cfg.Scan.Extensions,
		Destination:      cfg.Organize.Destination,
		RulesPath:        cfg.Organize.RulesPath,
		Strategy:         cfg.Organize.Strategy,
		UseMeta:          cfg.Organize.UseMeta,
		DefaultConflict:  conflict,
		OpenAfterApply:   cfg.Organize.OpenAfterApply,
	}, nil
}

// DuplicateFinder groups duplicate-candidate files.
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, files []tidy.FileEntry) (map[dupes.Key][]tidy.FileEntry, error)
}

// Service coordinates the components behind every CLI operation.
type Service struct {
	opts      Options
	blacklist tidy.Blacklist
	journal   tidy.Journal
	peeker    tidy.MetadataPeeker
	finder    DuplicateFinder
	opener    tidy.FolderOpener
	logger    tidy.Logger
}

// NewService creates a Service. peeker, finder and opener may be nil.
func NewService(opts Options, blacklist tidy.Blacklist, journal tidy.Journal, peeker tidy.MetadataPeeker, finder DuplicateFinder, opener tidy.FolderOpener, logger tidy.Logger) *Service {
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyRecommend
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = config.DefaultMaxDepth
	}
	return &Service{
		opts:      opts,
		blacklist: blacklist,
		journal:   journal,
		peeker:    peeker,
		finder:    finder,
		opener:    opener,
		logger:    logger,
	}
}

// ScanResult is a completed scan.
type ScanResult struct {
	Root        string
	Entries     []tidy.FileEntry
	Diagnostics *fs.Diagnostics
}

// Scan resolves root and walks it, excluding blacklisted trees and the
// destination when it lies strictly inside root.
func (s *Service) Scan(root string) (*ScanResult, error) {
	resolved, err := fs.ResolveDir(root)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root: %w", err)
	}

	excluded := s.blacklist.Combined()
	if dest := s.destination(); dest != "" && dest != resolved && fs.Within(dest, resolved) {
		excluded = append(excluded, dest)
	}

	diags := &fs.Diagnostics{}
	opts := fs.ScanOptions{
		ExcludedRoots:    excluded,
		ExcludedDirNames: s.opts.ExcludedDirNames,
		MaxDepth:         s.opts.MaxDepth,
	}
	entries := fs.Collect(fs.Scan(resolved, opts, diags))

	for _, skip := range diags.Skips {
		s.logger.Debug("scan skipped", "path", skip.Path, "reason", skip.Reason, "error", skip.Err)
	}
	s.logger.Info("scan finished", "root", resolved, "entries", len(entries), "skipped", len(diags.Skips))
	return &ScanResult{Root: resolved, Entries: entries, Diagnostics: diags}, nil
}

// Decision is what the pipeline chose for one file.
type Decision struct {
	Entry          tidy.FileEntry
	Recommendation tidy.Recommendation
	Dst            string
	Action         Action
}

// Action describes how a decision ends up in the plan.
type Action string

const (
	ActionMove      Action = "move"
	ActionRename    Action = "rename"    // moved under a "name (N)" variant
	ActionOverwrite Action = "overwrite" // destination taken; replaced per platform rename
	ActionSkip      Action = "skip"      // destination taken and the rule says skip
	ActionNoop      Action = "noop"      // already at its destination
)

// Preview is a dry run: every decision and the resulting plan.
type Preview struct {
	Scan      *ScanResult
	Files     []tidy.FileEntry
	Rules     []rules.Rule
	Decisions []Decision
	Moves     *tidy.MoveMap
	Plan      *tidy.MovePlan
}

// Planned returns the decisions that made it into the move map.
func (p *Preview) Planned() []Decision {
	var out []Decision
	for _, d := range p.Decisions {
		if d.Action != ActionSkip && d.Action != ActionNoop {
			out = append(out, d)
		}
	}
	return out
}

// Preview scans root and computes the moves that Apply would perform.
// It changes nothing on disk.
func (s *Service) Preview(ctx context.Context, root string) (*Preview, error) {
	scan, err := s.Scan(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ruleList := s.loadRules()
	ruleMap := rules.RuleMap(ruleList)
	files := s.filterFiles(scan.Entries)
	siblings := classify.SiblingsByDir(files)
	recommender := classify.Recommender{Peeker: s.peeker, UseMeta: s.opts.UseMeta}
	dest := s.destination()
	if dest == "" {
		dest = scan.Root
	}

	claims := newClaims()
	moves := tidy.NewMoveMap()
	decisions := make([]Decision, 0, len(files))

	for _, e := range files {
		var rec tidy.Recommendation
		if s.opts.Strategy == config.StrategyAuto {
			rec = classify.AutoLabel(e)
		} else {
			rec = recommender.Recommend(e, siblings[e.Dir()])
		}

		d := Decision{Entry: e, Recommendation: rec, Action: ActionMove}
		d.Dst = classify.ResolveDestination(ruleMap, rec, e, dest)

		if d.Dst == e.Path {
			d.Action = ActionNoop
			decisions = append(decisions, d)
			continue
		}

		if claims.taken(d.Dst) {
			switch s.conflictFor(ruleMap, rec) {
			case rules.ConflictSkip:
				d.Action = ActionSkip
			case rules.ConflictRename:
				d.Dst = claims.freeVariant(d.Dst)
				d.Action = ActionRename
			default:
				d.Action = ActionOverwrite
				s.logger.Warn("destination already taken, will be replaced", "src", e.Path, "dst", d.Dst)
			}
		}

		if d.Action != ActionSkip {
			claims.claim(d.Dst)
			moves.Set(e.Path, d.Dst)
		}
		decisions = append(decisions, d)
	}

	plan := tidy.Plan(moves)
	s.logger.Info("preview ready", "root", scan.Root, "files", len(files), "moves", plan.Total)
	return &Preview{
		Scan:      scan,
		Files:     files,
		Rules:     ruleList,
		Decisions: decisions,
		Moves:     moves,
		Plan:      plan,
	}, nil
}

// Duplicates scans root and returns its duplicate-candidate groups.
func (s *Service) Duplicates(ctx context.Context, root string) ([]dupes.Group, error) {
	if s.finder == nil {
		return nil, errors.New("duplicate detection is not configured")
	}
	scan, err := s.Scan(root)
	if err != nil {
		return nil, err
	}
	groups, err := s.finder.FindDuplicates(ctx, tidy.Files(scan.Entries))
	if err != nil {
		return nil, err
	}
	return dupes.Sorted(groups), nil
}

// Apply performs moves as one batch. When open is set, or OpenAfterApply is
// configured, the destination is revealed afterwards; failures there are ignored.
func (s *Service) Apply(moves *tidy.MoveMap, mode tidy.Mode, open bool) (string, error) {
	id, err := s.journal.Apply(moves, mode)
	if err != nil {
		return id, err
	}
	if (open || s.opts.OpenAfterApply) && s.opener != nil {
		if dest := s.destination(); dest != "" {
			if oerr := s.opener.Open(dest); oerr != nil {
				s.logger.Warn("could not open destination", "path", dest, "error", oerr)
			}
		}
	}
	return id, nil
}

// History returns every logged batch, most recent first.
func (s *Service) History() ([]tidy.BatchRecord, error) {
	return s.journal.Read()
}

// Rollback reverses one batch.
func (s *Service) Rollback(batchID string) (int, error) {
	return s.journal.RollbackBatch(batchID)
}

// RollbackRecent reverses the count most recent batches; count <= 0 means all.
func (s *Service) RollbackRecent(count int) (int, error) {
	return s.journal.RollbackRecent(count)
}

// Rules loads the configured rule file.
func (s *Service) Rules() ([]rules.Rule, error) {
	return rules.Load(s.opts.RulesPath)
}

// loadRules treats an unreadable or invalid rule file as empty.
func (s *Service) loadRules() []rules.Rule {
	if s.opts.RulesPath == "" {
		return nil
	}
	list, err := rules.Load(s.opts.RulesPath)
	if err != nil {
		s.logger.Warn("ignoring rule file", "path", s.opts.RulesPath, "error", err)
		return nil
	}
	return list
}

func (s *Service) conflictFor(ruleMap map[string]rules.Rule, rec tidy.Recommendation) rules.Conflict {
	if r, ok := ruleMap[rec.Rule]; ok && r.Conflict != rules.ConflictUnset {
		return r.Conflict
	}
	return s.opts.DefaultConflict
}

func (s *Service) destination() string {
	if s.opts.Destination == "" {
		return ""
	}
	return fs.CanonicalPath(s.opts.Destination)
}

// filterFiles keeps regular scan results that take part in classification.
func (s *Service) filterFiles(entries []tidy.FileEntry) []tidy.FileEntry {
	var allowed map[string]struct{}
	if len(s.opts.Extensions) > 0 {
		allowed = make(map[string]struct{}, len(s.opts.Extensions))
		for _, ext := range s.opts.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			allowed[ext] = struct{}{}
		}
	}

	var files []tidy.FileEntry
	for _, e := range entries {
		if e.IsDir || e.Name() == fs.IgnoreFileName {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
				continue
			}
		}
		files = append(files, e)
	}
	return files
}
