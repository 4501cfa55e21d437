package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Set via -ldflags at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile       string
	logLevel      string
	logFormat     string
	saveDirFlag   string
	backupDirFlag string
	tickFlag      time.Duration

	// Command flags
	dryRun    bool
	assumeYes bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "savesyncd",
	Short: "Keep Brogue save games mirrored in a backup directory",
	Long: `savesyncd keeps a game's save directory and a backup directory in step.

Saves that exist on one side only are copied to the other side without ever
overwriting an existing file. A save can be deleted from both sides at once
from the interactive view or with the delete command.

Without a subcommand it starts the interactive view.`,
	SilenceUsage: true,
	RunE:         runInteractive,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive view (default)",
	Long: `Run re-scans both directories on a fixed interval, copies one-sided saves
to the other side and shows every save with its sync status.

Press d and then a save's letter to delete it from both directories.`,
	RunE: runInteractive,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Perform a single synchronization pass",
	Long: `Sync scans both directories once and copies every save that exists on
one side only to the other side. Existing files are never overwritten.`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync status of every save",
	RunE:  runStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <letter>",
	Short: "Delete a save from both directories",
	Long: `Delete removes the save shown under the given letter by the status command
from the backup directory and then from the save directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "savesyncd %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/savesyncd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&saveDirFlag, "save-dir", "", "save directory (overrides paths.save_dir)")
	rootCmd.PersistentFlags().StringVar(&backupDirFlag, "backup-dir", "", "backup directory (overrides paths.backup_dir)")
	rootCmd.PersistentFlags().DurationVar(&tickFlag, "tick", 0, "reconcile interval (overrides loop.tick_interval)")

	// Command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without making changes")
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
