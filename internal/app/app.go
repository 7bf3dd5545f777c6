package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tidy-go/internal/blacklist"
	"tidy-go/internal/config"
	"tidy-go/internal/database"
	"tidy-go/internal/dupes"
	"tidy-go/internal/fs"
	"tidy-go/internal/journal"
	"tidy-go/internal/meta"
	"tidy-go/internal/opener"
	"tidy-go/internal/organizer"
	"tidy-go/internal/rulegen"
	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// CacheRetention is how long an untouched head-hash cache entry is kept.
const CacheRetention = 90 * 24 * time.Hour

// TidyApp is the application layer between the CLI and the organizer service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and releases the cache and log file on Close.
type TidyApp struct {
	cfg       *config.Config
	clock     tidy.Clock
	logger    tidy.Logger
	blacklist *blacklist.Manager
	journal   *journal.Journal
	cache     *database.SQLiteHashCache
	detector  *dupes.Detector
	rulegen   *rulegen.CommandGenerator
	service   *organizer.Service
	op        *Operation
	logFile   *os.File
}

// NewTidyApp creates a fully wired TidyApp from the given config.
// operation identifies the CLI command being run (e.g. "Preview", "Apply").
// The caller must call Close when done.
func NewTidyApp(cfg *config.Config, operation, parameters string) (*TidyApp, error) {
	clock := tidy.RealClock{}

	runID := uuid.New().String()
	slogger, logFile, err := newLogger(cfg.LogDir, runID, parseLevel(cfg.LogLevel), os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	opts, err := organizer.OptionsFromConfig(cfg)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	cache, err := database.NewHashCacheFromConfig(cfg.Cache, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating hash cache: %w", err)
	}
	// A nil *SQLiteHashCache must not become a non-nil interface.
	var hashCache tidy.HashCache
	if cache != nil {
		hashCache = cache
	}

	timeout, err := cfg.RuleGen.TimeoutDuration()
	if err != nil {
		logFile.Close()
		return nil, err
	}

	bl := blacklist.NewManager(cfg.Blacklist.Path, logger)
	j := journal.New(cfg.Undo.LogPath, clock, logger)
	detector := dupes.NewDetector(cfg.Cache.Workers, hashCache, logger)
	svc := organizer.NewService(opts, bl, j, meta.NewPeeker(logger), detector, opener.New(), logger)

	op := NewOperation(operation, parameters, clock.Now())
	logger.Info("operation started", "operation", op.Name, "parameters", op.Parameters)

	return &TidyApp{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		blacklist: bl,
		journal:   j,
		cache:     cache,
		detector:  detector,
		rulegen:   rulegen.NewCommandGenerator(cfg.RuleGen.Command, timeout, logger),
		service:   svc,
		op:        op,
		logFile:   logFile,
	}, nil
}

// Config returns the loaded configuration.
func (a *TidyApp) Config() *config.Config {
	return a.cfg
}

// Fail marks the running operation as failed in the log written by Close.
func (a *TidyApp) Fail(err error) {
	a.op.Fail(err)
}

// Scan walks rawRoot and returns every entry plus skip diagnostics.
func (a *TidyApp) Scan(rawRoot string) (*organizer.ScanResult, error) {
	return a.service.Scan(rawRoot)
}

// Tree scans rawRoot and arranges the result as a directory tree.
func (a *TidyApp) Tree(rawRoot string) (*fs.DirNode, error) {
	res, err := a.service.Scan(rawRoot)
	if err != nil {
		return nil, err
	}
	return fs.BuildTree(res.Root, res.Entries), nil
}

// Preview computes what organizing rawRoot would do without touching it.
func (a *TidyApp) Preview(ctx context.Context, rawRoot string) (*organizer.Preview, error) {
	return a.service.Preview(ctx, rawRoot)
}

// Apply runs moves as one logged batch. An empty mode uses organize.mode.
func (a *TidyApp) Apply(moves *tidy.MoveMap, mode string, open bool) (string, error) {
	if mode == "" {
		mode = a.cfg.Organize.Mode
	}
	m, err := tidy.ParseMode(mode)
	if err != nil {
		return "", err
	}
	return a.service.Apply(moves, m, open)
}

// Duplicates reports duplicate-candidate groups under rawRoot. progress, if
// set, is called as files are hashed. Stale cache entries are pruned afterwards.
func (a *TidyApp) Duplicates(ctx context.Context, rawRoot string, progress func(done, total int)) ([]dupes.Group, error) {
	a.detector.Progress = progress
	groups, err := a.service.Duplicates(ctx, rawRoot)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		n, err := a.cache.Prune(a.clock.Now().Add(-CacheRetention))
		if err != nil {
			a.logger.Warn("pruning hash cache failed", "error", err)
		} else if n > 0 {
			a.logger.Debug("pruned hash cache", "removed", n)
		}
	}
	return groups, nil
}

// History returns at most limit batches, newest first. limit <= 0 returns all.
func (a *TidyApp) History(limit int) ([]tidy.BatchRecord, error) {
	records, err := a.service.History()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Undo rolls back one batch by id.
func (a *TidyApp) Undo(batchID string) (int, error) {
	return a.service.Rollback(batchID)
}

// UndoRecent rolls back the count most recent batches; count <= 0 means all.
func (a *TidyApp) UndoRecent(count int) (int, error) {
	return a.service.RollbackRecent(count)
}

// BlacklistDefaults returns the read-only platform entries.
func (a *TidyApp) BlacklistDefaults() []string {
	return a.blacklist.Defaults()
}

// BlacklistUser returns the user entries.
func (a *TidyApp) BlacklistUser() []string {
	return a.blacklist.LoadUser()
}

// BlacklistAdd resolves raw paths and adds them to the user entries.
func (a *TidyApp) BlacklistAdd(rawPaths ...string) ([]string, error) {
	paths, err := absPaths(rawPaths)
	if err != nil {
		return nil, err
	}
	if err := a.blacklist.Add(paths...); err != nil {
		return nil, err
	}
	return paths, nil
}

// BlacklistRemove resolves raw paths and removes them from the user entries.
func (a *TidyApp) BlacklistRemove(rawPaths ...string) (int, error) {
	paths, err := absPaths(rawPaths)
	if err != nil {
		return 0, err
	}
	return a.blacklist.Remove(paths...)
}

// BlacklistClear removes every user entry.
func (a *TidyApp) BlacklistClear() error {
	return a.blacklist.Clear()
}

// BlacklistRecommend suggests entries found one level below rawRoots, or
// below the home directory when none are given. With add set, the
// suggestions that are not defaults are saved as user entries.
func (a *TidyApp) BlacklistRecommend(rawRoots []string, add bool) ([]string, error) {
	if len(rawRoots) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		rawRoots = []string{home}
	}
	roots, err := absPaths(rawRoots)
	if err != nil {
		return nil, err
	}

	suggested := a.blacklist.Recommend(roots)
	if add {
		defaults := make(map[string]struct{})
		for _, d := range a.blacklist.Defaults() {
			defaults[d] = struct{}{}
		}
		var extra []string
		for _, p := range suggested {
			if _, ok := defaults[p]; !ok {
				extra = append(extra, p)
			}
		}
		if err := a.blacklist.Add(extra...); err != nil {
			return nil, err
		}
	}
	return suggested, nil
}

// Rules loads and validates the configured rule file.
func (a *TidyApp) Rules() ([]rules.Rule, error) {
	return a.service.Rules()
}

// RulesPath returns the configured rule file location.
func (a *TidyApp) RulesPath() string {
	return a.cfg.Organize.RulesPath
}

// ValidateRules checks the rule file at rawPath, or the configured one when empty.
func (a *TidyApp) ValidateRules(rawPath string) ([]rules.Rule, error) {
	path := a.cfg.Organize.RulesPath
	if rawPath != "" {
		path = rawPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	list, err := rules.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return list, nil
}

// TestRules returns the names of rules whose match predicates accept filename.
func (a *TidyApp) TestRules(filename string) ([]string, error) {
	list, err := a.service.Rules()
	if err != nil {
		return nil, err
	}
	return rules.Matches(list, filepath.Base(filename)), nil
}

// InitRules writes the built-in rule document to the configured path. An
// existing file is only replaced when force is set.
func (a *TidyApp) InitRules(force bool) (string, error) {
	path := a.cfg.Organize.RulesPath
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("rules file already exists at %s", path)
	}
	if err := writeFileAtomic(path, []byte(rules.DefaultRulesYAML)); err != nil {
		return "", err
	}
	return path, nil
}

// GenerateRules asks the configured model command for rules. With save set,
// the validated document replaces the configured rule file.
func (a *TidyApp) GenerateRules(ctx context.Context, prompt string, save bool) (string, error) {
	doc, err := a.rulegen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if save {
		if err := writeFileAtomic(a.cfg.Organize.RulesPath, []byte(doc)); err != nil {
			return "", err
		}
		a.logger.Info("saved generated rules", "path", a.cfg.Organize.RulesPath)
	}
	return doc, nil
}

// Close logs the operation outcome and releases the cache and log file.
func (a *TidyApp) Close() error {
	var firstErr error

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"elapsed", a.op.Elapsed(a.clock.Now()))

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			firstErr = fmt.Errorf("closing hash cache: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

func absPaths(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		expanded, err := fs.ExpandHome(r)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		out = append(out, abs)
	}
	if len(out) == 0 {
		return nil, errors.New("no paths given")
	}
	return out, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tidy-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
