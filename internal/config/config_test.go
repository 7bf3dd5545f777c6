package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/tidy")
	original.LogLevel = "debug"
	original.Scan.Extensions = []string{".jpg", ".pdf"}
	original.Organize.Strategy = StrategyAuto
	original.Organize.UseMeta = true
	original.Organize.Mode = "copy"
	original.Organize.DefaultConflict = "rename"
	original.Cache = CacheConfig{Type: "memory", Workers: 8}
	original.RuleGen = RuleGenConfig{Command: []string{"llm", "-m", "local"}, Timeout: "30s"}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", got.LogLevel)
	}
	if len(got.Scan.Extensions) != 2 {
		t.Errorf("Scan.Extensions = %v", got.Scan.Extensions)
	}
	if len(got.Scan.ExcludeDirNames) != len(DefaultExcludeDirNames) {
		t.Errorf("Scan.ExcludeDirNames = %v", got.Scan.ExcludeDirNames)
	}
	if got.Organize.Strategy != StrategyAuto || !got.Organize.UseMeta || got.Organize.Mode != "copy" {
		t.Errorf("Organize = %+v", got.Organize)
	}
	if got.Cache.Type != "memory" || got.Cache.Workers != 8 {
		t.Errorf("Cache = %+v", got.Cache)
	}
	if len(got.RuleGen.Command) != 3 || got.RuleGen.Timeout != "30s" {
		t.Errorf("RuleGen = %+v", got.RuleGen)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/tidy")

	checks := map[string][2]string{
		"LogDir":        {cfg.LogDir, "/data/tidy/log"},
		"LogLevel":      {cfg.LogLevel, "info"},
		"RulesPath":     {cfg.Organize.RulesPath, "/data/tidy/rules.yaml"},
		"Destination":   {cfg.Organize.Destination, "~/Organized"},
		"Strategy":      {cfg.Organize.Strategy, StrategyRecommend},
		"Mode":          {cfg.Organize.Mode, "move"},
		"UndoLog":       {cfg.Undo.LogPath, "/data/tidy/undo.jsonl"},
		"BlacklistPath": {cfg.Blacklist.Path, "/data/tidy/blacklist.yaml"},
		"CacheType":     {cfg.Cache.Type, "sqlite"},
		"CacheDataDir":  {cfg.Cache.DataDir, "/data/tidy"},
	}
	for name, c := range checks {
		if filepath.ToSlash(c[0]) != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if cfg.Scan.MaxDepth != DefaultMaxDepth {
		t.Errorf("Scan.MaxDepth = %d", cfg.Scan.MaxDepth)
	}
	if cfg.Cache.Workers != 4 {
		t.Errorf("Cache.Workers = %d", cfg.Cache.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		BaseDir: "/b",
		Scan:    ScanConfig{MaxDepth: 3, ExcludeDirNames: []string{}},
		Cache:   CacheConfig{Type: "none"},
	}
	cfg.ApplyDefaults()

	if cfg.Scan.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", cfg.Scan.MaxDepth)
	}
	if len(cfg.Scan.ExcludeDirNames) != 0 {
		t.Errorf("explicit empty exclude list should stay empty: %v", cfg.Scan.ExcludeDirNames)
	}
	if cfg.Cache.DataDir != "" {
		t.Errorf("DataDir should stay empty for cache type none, got %q", cfg.Cache.DataDir)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errSub string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad strategy", func(c *Config) { c.Organize.Strategy = "guess" }, "strategy"},
		{"bad mode", func(c *Config) { c.Organize.Mode = "link" }, "mode"},
		{"bad conflict", func(c *Config) { c.Organize.DefaultConflict = "merge" }, "default_conflict"},
		{"bad cache", func(c *Config) { c.Cache.Type = "redis" }, "cache.type"},
		{"negative depth", func(c *Config) { c.Scan.MaxDepth = -1 }, "max_depth"},
		{"bad timeout", func(c *Config) { c.RuleGen.Timeout = "soon" }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/b")
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q should mention %q", err, tt.errSub)
			}
		})
	}
}

func TestRuleGenConfig_TimeoutDuration(t *testing.T) {
	d, err := RuleGenConfig{}.TimeoutDuration()
	if err != nil || d != DefaultRuleGenTimeout {
		t.Errorf("empty timeout = %v, %v", d, err)
	}
	d, err = RuleGenConfig{Timeout: "45s"}.TimeoutDuration()
	if err != nil || d != 45*time.Second {
		t.Errorf("45s timeout = %v, %v", d, err)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tidy.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tidy.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("fills defaults from base dir", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tidy.toml")
		if err := os.WriteFile(path, []byte("[organize]\ndestination = \"/srv/sorted\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path, dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
		}
		if cfg.Organize.Destination != "/srv/sorted" {
			t.Errorf("Destination = %q", cfg.Organize.Destination)
		}
		if cfg.Undo.LogPath != filepath.Join(dir, "undo.jsonl") {
			t.Errorf("Undo.LogPath = %q", cfg.Undo.LogPath)
		}
	})

	t.Run("expands home", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tidy.toml")
		if err := os.WriteFile(path, []byte("base_dir = \"~/tidy-data\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}

		cfg, err := Load(path, dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseDir != filepath.Join(home, "tidy-data") {
			t.Errorf("BaseDir = %q", cfg.BaseDir)
		}
		if cfg.Organize.Destination != filepath.Join(home, "Organized") {
			t.Errorf("Destination = %q", cfg.Organize.Destination)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tidy.toml")
		if err := os.WriteFile(path, []byte("[organize]\nstrategy = \"vibes\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, dir); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := Load("/nonexistent/path/tidy.toml", "/b"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}
