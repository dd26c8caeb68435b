package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRecentDays marks environments touched within this many days as recent.
	DefaultRecentDays = 30
	// DefaultOldDays marks environments untouched for longer than this as old.
	DefaultOldDays = 90
	// DefaultMaxDepth matches the scanner's default depth budget.
	DefaultMaxDepth = 5

	appName  = "venvkiller"
	fileName = "config.yaml"
)

type Config struct {
	StartDir      string   `yaml:"start_dir"`
	RecentDays    int      `yaml:"recent_days"`
	OldDays       int      `yaml:"old_days"`
	MaxDepth      int      `yaml:"max_depth"`
	Exclude       []string `yaml:"exclude"`
	Parallel      bool     `yaml:"parallel"`
	Theme         string   `yaml:"theme"`
	LogLevel      string   `yaml:"log_level"`
	ConfirmDelete bool     `yaml:"confirm_delete"`
}

func DefaultConfig() Config {
	return Config{
		StartDir:      "~",
		RecentDays:    DefaultRecentDays,
		OldDays:       DefaultOldDays,
		MaxDepth:      DefaultMaxDepth,
		Parallel:      true,
		Theme:         "mocha",
		LogLevel:      "info",
		ConfirmDelete: true,
	}
}

func Load() (Config, error) {
	return LoadFrom(filepath.Join(Dir(), fileName))
}

// LoadFromDir loads config.yaml from dir.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, fileName))
}

// LoadFrom reads the config at configPath. A missing file yields defaults;
// keys absent from the file keep their default values.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", configPath, err)
	}

	if cfg.Theme == "" {
		cfg.Theme = "mocha"
	}
	if cfg.StartDir == "" {
		cfg.StartDir = "~"
	}

	return cfg, nil
}

// Validate rejects thresholds and depths that cannot be applied.
func (c *Config) Validate() error {
	var errs []error
	if c.RecentDays < 0 {
		errs = append(errs, fmt.Errorf("recent_days must not be negative (got %d)", c.RecentDays))
	}
	if c.OldDays < 0 {
		errs = append(errs, fmt.Errorf("old_days must not be negative (got %d)", c.OldDays))
	}
	if c.RecentDays > c.OldDays {
		errs = append(errs, fmt.Errorf("recent_days (%d) must not exceed old_days (%d)", c.RecentDays, c.OldDays))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must not be negative (got %d)", c.MaxDepth))
	}
	return errors.Join(errs...)
}

// ResolveStartDir expands a leading ~ and returns an absolute path.
func (c *Config) ResolveStartDir() (string, error) {
	return filepath.Abs(ExpandHome(c.StartDir))
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Dir returns the default configuration directory, honouring
// XDG_CONFIG_HOME.
func Dir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}

	return filepath.Join(home, ".config", appName)
}
