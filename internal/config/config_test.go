package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return dir
}

func TestLoadFullConfig(t *testing.T) {
	dir := writeConfig(t, `
start_dir: ~/code
recent_days: 7
old_days: 60
max_depth: 3
exclude:
  - node_modules
  - .git
parallel: false
theme: latte
log_level: debug
confirm_delete: false
`)

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	if cfg.StartDir != "~/code" {
		t.Errorf("StartDir: got %q, want %q", cfg.StartDir, "~/code")
	}
	if cfg.RecentDays != 7 || cfg.OldDays != 60 {
		t.Errorf("thresholds: got %d/%d, want 7/60", cfg.RecentDays, cfg.OldDays)
	}
	if cfg.MaxDepth != 3 {
		t.Errorf("MaxDepth: got %d, want 3", cfg.MaxDepth)
	}
	if !slices.Equal(cfg.Exclude, []string{"node_modules", ".git"}) {
		t.Errorf("Exclude: got %v", cfg.Exclude)
	}
	if cfg.Parallel {
		t.Error("Parallel: got true, want false")
	}
	if cfg.Theme != "latte" {
		t.Errorf("Theme: got %q, want %q", cfg.Theme, "latte")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.ConfirmDelete {
		t.Error("ConfirmDelete: got true, want false")
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	dir := writeConfig(t, "old_days: 180\n")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	want := DefaultConfig()
	want.OldDays = 180
	if cfg.RecentDays != want.RecentDays || cfg.OldDays != 180 || !cfg.Parallel || !cfg.ConfirmDelete || cfg.Theme != "mocha" {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.RecentDays != DefaultRecentDays || cfg.OldDays != DefaultOldDays || cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("got %+v, want defaults", cfg)
	}
	if cfg.StartDir != "~" {
		t.Errorf("StartDir: got %q, want ~", cfg.StartDir)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "recent_days: [not a number\n")

	cfg, err := LoadFromDir(dir)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.RecentDays != DefaultRecentDays {
		t.Errorf("invalid file should fall back to defaults, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"equal thresholds", func(c *Config) { c.RecentDays, c.OldDays = 30, 30 }, ""},
		{"recent above old", func(c *Config) { c.RecentDays, c.OldDays = 100, 50 }, "must not exceed"},
		{"negative recent", func(c *Config) { c.RecentDays = -1 }, "recent_days must not be negative"},
		{"negative depth", func(c *Config) { c.MaxDepth = -2 }, "max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	tests := map[string]string{
		"~":          home,
		"~/projects": filepath.Join(home, "projects"),
		"/abs/path":  "/abs/path",
		"rel/~":      "rel/~",
		"~other":     "~other",
	}
	for in, want := range tests {
		if got := ExpandHome(in); got != want {
			t.Errorf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}

	cfg := Config{StartDir: "~/code"}
	got, err := cfg.ResolveStartDir()
	if err != nil {
		t.Fatalf("ResolveStartDir() error = %v", err)
	}
	if got != filepath.Join(home, "code") {
		t.Errorf("ResolveStartDir() = %q", got)
	}
}

func TestDirHonoursXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if got := Dir(); got != filepath.Join(xdg, "venvkiller") {
		t.Errorf("Dir() = %q", got)
	}
}
