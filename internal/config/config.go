package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schaermu/savesyncd/internal/savefile"
	"gopkg.in/yaml.v3"
)

// Defaults of the reference deployment (Brogue CE on macOS)
const (
	DefaultSaveDir      = "Library/Application Support/Brogue/Brogue CE"
	DefaultBackupDir    = ".brogue"
	DefaultTickInterval = 250 * time.Millisecond
	DefaultDebounce     = 100 * time.Millisecond
	DefaultLogFile      = "savesyncd.log"
	lockFileName        = ".savesyncd.lock"
)

// Config represents the complete savesyncd configuration
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	Filter FilterConfig `yaml:"filter"`
	Loop   LoopConfig   `yaml:"loop"`
	Watch  WatchConfig  `yaml:"watch"`
	Log    LogConfig    `yaml:"log"`
}

// PathsConfig configures the two synchronized directories
type PathsConfig struct {
	SaveDir   string `yaml:"save_dir"`
	BackupDir string `yaml:"backup_dir"`
}

// FilterConfig selects which files are save files
type FilterConfig struct {
	Prefix    string   `yaml:"prefix"`
	Extension string   `yaml:"extension"`
	Exclude   []string `yaml:"exclude"`
}

// LoopConfig configures the host loop
type LoopConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// WatchConfig configures filesystem change hints
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures the log file
type LogConfig struct {
	File string `yaml:"file"`
}

// Default returns the built-in configuration for the given home directory
func Default(home string) *Config {
	backupDir := filepath.Join(home, DefaultBackupDir)
	return &Config{
		Paths: PathsConfig{
			SaveDir:   filepath.Join(home, DefaultSaveDir),
			BackupDir: backupDir,
		},
		Filter: FilterConfig{
			Prefix:    savefile.DefaultPrefix,
			Extension: savefile.DefaultExtension,
		},
		Loop: LoopConfig{
			TickInterval: DefaultTickInterval,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
		Log: LogConfig{
			File: filepath.Join(backupDir, DefaultLogFile),
		},
	}
}

// DefaultPath returns the default config file location
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "savesyncd", "config.yaml")
}

// Load reads and parses the configuration file. Values missing from the file
// keep their defaults.
func Load(path, home string) (*Config, error) {
	// Expand environment variables in path
	path = expandPath(path, home)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default(home)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Finalize(home); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to the defaults
// otherwise.
func LoadOrDefault(path, home string) (*Config, error) {
	cfg, err := Load(path, home)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default(home)
		if err := cfg.Finalize(home); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

// Finalize expands, normalizes and validates the configuration
func (c *Config) Finalize(home string) error {
	c.expandEnv(home)
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// expandEnv expands environment variables and a leading ~ in path fields
func (c *Config) expandEnv(home string) {
	c.Paths.SaveDir = expandPath(c.Paths.SaveDir, home)
	c.Paths.BackupDir = expandPath(c.Paths.BackupDir, home)
	c.Log.File = expandPath(c.Log.File, home)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	c.Filter.Extension = strings.TrimPrefix(c.Filter.Extension, ".")
	if c.Loop.TickInterval == 0 {
		c.Loop.TickInterval = DefaultTickInterval
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Paths.SaveDir == "" {
		return fmt.Errorf("paths.save_dir is required")
	}
	if c.Paths.BackupDir == "" {
		return fmt.Errorf("paths.backup_dir is required")
	}

	// Ensure paths are absolute
	if !filepath.IsAbs(c.Paths.SaveDir) {
		return fmt.Errorf("paths.save_dir must be an absolute path: %s", c.Paths.SaveDir)
	}
	if !filepath.IsAbs(c.Paths.BackupDir) {
		return fmt.Errorf("paths.backup_dir must be an absolute path: %s", c.Paths.BackupDir)
	}
	if filepath.Clean(c.Paths.SaveDir) == filepath.Clean(c.Paths.BackupDir) {
		return fmt.Errorf("paths.save_dir and paths.backup_dir must differ: %s", c.Paths.SaveDir)
	}

	if err := c.SaveFilter().Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	if c.Loop.TickInterval < 0 {
		return fmt.Errorf("loop.tick_interval must be positive: %s", c.Loop.TickInterval)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative: %s", c.Watch.Debounce)
	}

	return nil
}

// SaveFilter returns the save-file filter described by the config
func (c *Config) SaveFilter() savefile.Filter {
	return savefile.Filter{
		Prefix:    c.Filter.Prefix,
		Extension: c.Filter.Extension,
		Exclude:   c.Filter.Exclude,
	}
}

// LockPath returns the path of the single-instance lock file
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.BackupDir, lockFileName)
}

func expandPath(path, home string) string {
	path = os.ExpandEnv(path)
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
