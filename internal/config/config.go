package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tidy-go/internal/fs"
	"tidy-go/internal/rules"
	"tidy-go/internal/tidy"
)

// Config represents the main configuration for tidy.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	LogLevel  string          `toml:"log_level"` // debug, info, warn, error
	Scan      ScanConfig      `toml:"scan"`
	Organize  OrganizeConfig  `toml:"organize"`
	Undo      UndoConfig      `toml:"undo"`
	Blacklist BlacklistConfig `toml:"blacklist"`
	Cache     CacheConfig     `toml:"cache"`
	RuleGen   RuleGenConfig   `toml:"rulegen"`
}

// ScanConfig controls the tree scanner.
type ScanConfig struct {
	MaxDepth        int      `toml:"max_depth"`
	ExcludeDirNames []string `toml:"exclude_dir_names"`
	Extensions      []string `toml:"extensions"` // empty means every file
}

// OrganizeConfig controls classification and apply.
type OrganizeConfig struct {
	Destination     string `toml:"destination"`
	RulesPath       string `toml:"rules_path"`
	Strategy        string `toml:"strategy"` // "recommend" or "auto"
	UseMeta         bool   `toml:"use_meta"`
	Mode            string `toml:"mode"`             // "move" or "copy"
	DefaultConflict string `toml:"default_conflict"` // used when a rule sets no conflict policy
	OpenAfterApply  bool   `toml:"open_after_apply"`
}

type UndoConfig struct {
	LogPath string `toml:"log_path"`
}

type BlacklistConfig struct {
	Path string `toml:"path"`
}

// CacheConfig represents configuration for the head-hash cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CacheConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	Workers int    `toml:"workers"`
}

// RuleGenConfig names the local command that turns prompts into rules.
type RuleGenConfig struct {
	Command []string `toml:"command"`
	Timeout string   `toml:"timeout"`
}

// TimeoutDuration parses Timeout, defaulting to two minutes.
func (c RuleGenConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultRuleGenTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid rulegen timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

const (
	StrategyRecommend = "recommend"
	StrategyAuto      = "auto"

	DefaultMaxDepth       = 12
	DefaultRuleGenTimeout = 2 * time.Minute
)

// DefaultExcludeDirNames are directory names never descended into.
var DefaultExcludeDirNames = []string{
	".git", ".svn", ".DS_Store", "__pycache__", "node_modules",
	"venv", ".venv", "dist", "build", ".idea", ".vscode",
}

// NewConfig creates a Config rooted at baseDir with every default filled in.
func NewConfig(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field. BaseDir must already be set.
func (c *Config) ApplyDefaults() {
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Scan.MaxDepth == 0 {
		c.Scan.MaxDepth = DefaultMaxDepth
	}
	if c.Scan.ExcludeDirNames == nil {
		c.Scan.ExcludeDirNames = append([]string(nil), DefaultExcludeDirNames...)
	}
	if c.Organize.Destination == "" {
		c.Organize.Destination = "~/Organized"
	}
	if c.Organize.RulesPath == "" {
		c.Organize.RulesPath = filepath.Join(c.BaseDir, "rules.yaml")
	}
	if c.Organize.Strategy == "" {
		c.Organize.Strategy = StrategyRecommend
	}
	if c.Organize.Mode == "" {
		c.Organize.Mode = string(tidy.ModeMove)
	}
	if c.Undo.LogPath == "" {
		c.Undo.LogPath = filepath.Join(c.BaseDir, "undo.jsonl")
	}
	if c.Blacklist.Path == "" {
		c.Blacklist.Path = filepath.Join(c.BaseDir, "blacklist.yaml")
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "sqlite"
	}
	if c.Cache.Type == "sqlite" && c.Cache.DataDir == "" {
		c.Cache.DataDir = c.BaseDir
	}
	if c.Cache.Workers <= 0 {
		c.Cache.Workers = 4
	}
	if c.RuleGen.Timeout == "" {
		c.RuleGen.Timeout = DefaultRuleGenTimeout.String()
	}
}

// ExpandPaths replaces a leading ~ in every path field.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{
		&c.BaseDir, &c.LogDir, &c.Organize.Destination, &c.Organize.RulesPath,
		&c.Undo.LogPath, &c.Blacklist.Path, &c.Cache.DataDir,
	} {
		expanded, err := fs.ExpandHome(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.Organize.Strategy {
	case StrategyRecommend, StrategyAuto:
	default:
		return fmt.Errorf("unknown organize.strategy %q (want recommend or auto)", c.Organize.Strategy)
	}
	if _, err := tidy.ParseMode(c.Organize.Mode); err != nil {
		return fmt.Errorf("organize.mode: %w", err)
	}
	if _, err := rules.ParseConflict(c.Organize.DefaultConflict); err != nil {
		return fmt.Errorf("organize.default_conflict: %w", err)
	}
	switch c.Cache.Type {
	case "sqlite", "memory", "none":
	default:
		return fmt.Errorf("unknown cache.type %q", c.Cache.Type)
	}
	if c.Scan.MaxDepth < 0 {
		return fmt.Errorf("scan.max_depth must not be negative")
	}
	if _, err := c.RuleGen.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the file at path and applies defaults relative to defaultBaseDir
// when the file does not set base_dir. Paths are expanded and the result validated.
func Load(path, defaultBaseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaultBaseDir
	}
	cfg.ApplyDefaults()
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
