package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schaermu/savesyncd/internal/config"
	"github.com/schaermu/savesyncd/internal/events"
	"github.com/schaermu/savesyncd/internal/fsops"
	"github.com/schaermu/savesyncd/internal/lock"
	"github.com/schaermu/savesyncd/internal/logging"
	"github.com/schaermu/savesyncd/internal/reconcile"
	"github.com/schaermu/savesyncd/internal/state"
)

// eventHistory is the number of events kept for the interactive view.
const eventHistory = 50

// app bundles the components every command works with
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder *events.Recorder
	scanner  *state.Scanner
	engine   *reconcile.Engine
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	fsys := fsops.OS{}
	recorder := events.NewRecorder(eventHistory)
	sink := events.Multi{events.NewSlogSink(logger), recorder}

	return &app{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		scanner:  state.NewScanner(fsys, cfg.SaveFilter()),
		engine:   reconcile.NewEngine(fsys, cfg.Paths.SaveDir, cfg.Paths.BackupDir, sink, logger),
	}
}

func (a *app) scan() (state.State, error) {
	return a.scanner.Scan(a.cfg.Paths.SaveDir, a.cfg.Paths.BackupDir)
}

// setupOptions selects what setup prepares for a command
type setupOptions struct {
	// interactive keeps log output off the terminal
	interactive bool
	// exclusive takes the single-instance lock
	exclusive bool
}

// setup loads configuration, builds the logger, prepares both directories
// and optionally takes the instance lock. The returned cleanup must always
// be called.
func setup(opts setupOptions) (*app, func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	cfg, configPath, err := loadConfig(home)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyOverrides(cfg, home); err != nil {
		return nil, nil, err
	}

	logger, closer, err := setupLogger(cfg, opts.interactive)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){func() { _ = closer.Close() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	logger.Debug("configuration loaded",
		"path", configPath,
		"save_dir", cfg.Paths.SaveDir,
		"backup_dir", cfg.Paths.BackupDir,
		"tick_interval", cfg.Loop.TickInterval)

	if err := prepareDirs(cfg); err != nil {
		cleanup()
		return nil, nil, err
	}

	if opts.exclusive {
		l, err := lock.Acquire(cfg.LockPath())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			if err := l.Unlock(); err != nil {
				logger.Warn("failed to release lock", "error", err)
			}
		})
	}

	return newApp(cfg, logger), cleanup, nil
}

// loadConfig reads --config if given; otherwise the default path, which may
// be absent.
func loadConfig(home string) (*config.Config, string, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile, home)
		return cfg, cfgFile, err
	}

	configPath := config.DefaultPath(home)
	cfg, err := config.LoadOrDefault(configPath, home)
	return cfg, configPath, err
}

// applyOverrides applies command-line flags on top of the file configuration
func applyOverrides(cfg *config.Config, home string) error {
	if saveDirFlag == "" && backupDirFlag == "" && tickFlag == 0 {
		return nil
	}
	if saveDirFlag != "" {
		cfg.Paths.SaveDir = saveDirFlag
	}
	if backupDirFlag != "" {
		cfg.Paths.BackupDir = backupDirFlag
	}
	if tickFlag != 0 {
		cfg.Loop.TickInterval = tickFlag
	}
	return cfg.Finalize(home)
}

func setupLogger(cfg *config.Config, interactive bool) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:  logLevel,
		Format: logFormat,
		File:   cfg.Log.File,
	}
	if !interactive {
		opts.Console = os.Stderr
	}

	logger, closer, err := logging.Setup(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}

// prepareDirs requires the save directory and creates the backup directory
func prepareDirs(cfg *config.Config) error {
	info, err := os.Stat(cfg.Paths.SaveDir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("save directory %s does not exist; start the game once or set paths.save_dir", cfg.Paths.SaveDir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat save directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save directory %s is not a directory", cfg.Paths.SaveDir)
	}

	if err := os.MkdirAll(cfg.Paths.BackupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	return nil
}
