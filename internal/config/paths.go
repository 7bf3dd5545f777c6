package config

import (
	"fmt"
	"os"
	"path/filepath"

	"tidy-go/internal/fs"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "TIDY_CONFIG_PATH"
	EnvHome       = "TIDY_HOME"
)

// Paths locates the config file and the directory tidy keeps its state in
// when the config does not set base_dir.
type Paths struct {
	ConfigFile string
	BaseDir    string
}

// DefaultPaths resolves Paths from TIDY_CONFIG_PATH and TIDY_HOME, then
// XDG_CONFIG_HOME and XDG_DATA_HOME, then ~/.config/tidy.toml and
// ~/.local/share/tidy.
func DefaultPaths() (Paths, error) {
	configFile, err := locate(EnvConfigPath, "XDG_CONFIG_HOME", ".config", "tidy.toml")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := locate(EnvHome, "XDG_DATA_HOME", filepath.Join(".local", "share"), "tidy")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigFile: configFile, BaseDir: baseDir}, nil
}

// Load reads the config file with defaults rooted at BaseDir.
func (p Paths) Load() (*Config, error) {
	return Load(p.ConfigFile, p.BaseDir)
}

// Init writes a default config to ConfigFile and returns it.
func (p Paths) Init() (*Config, error) {
	cfg := NewConfig(p.BaseDir)
	if err := Init(p.ConfigFile, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func locate(override, xdg, homeRel, name string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return fs.ExpandHome(p)
	}
	// Relative XDG values are invalid and ignored.
	if dir := os.Getenv(xdg); filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, homeRel, name), nil
}
