package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/schaermu/savesyncd/internal/reconcile"
	"github.com/schaermu/savesyncd/internal/state"
	"github.com/schaermu/savesyncd/internal/tui"
	"github.com/schaermu/savesyncd/internal/watch"
	"github.com/spf13/cobra"
)

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	a, cleanup, err := setup(setupOptions{interactive: true, exclusive: true})
	if err != nil {
		return err
	}
	defer cleanup()

	return a.runTUI(ctx)
}

func (a *app) runTUI(ctx context.Context) error {
	var hints <-chan watch.Hint
	if a.cfg.Watch.Enabled {
		w, err := watch.New(
			[]string{a.cfg.Paths.SaveDir, a.cfg.Paths.BackupDir},
			a.cfg.SaveFilter(),
			a.cfg.Watch.Debounce,
			a.logger)
		if err != nil {
			// polling alone still converges
			a.logger.Warn("filesystem watcher unavailable", "error", err)
		} else if err := w.Start(); err != nil {
			a.logger.Warn("filesystem watcher unavailable", "error", err)
		} else {
			defer func() { _ = w.Close() }()
			hints = w.Hints()
		}
	}

	model := tui.New(tui.Options{
		Scanner:   a.scanner,
		Engine:    a.engine,
		SaveDir:   a.cfg.Paths.SaveDir,
		BackupDir: a.cfg.Paths.BackupDir,
		Interval:  a.cfg.Loop.TickInterval,
		Logger:    a.logger,
		Recorder:  a.recorder,
		Hints:     hints,
	})

	a.logger.Info("starting interactive view", "tick_interval", a.cfg.Loop.TickInterval)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("interactive view failed: %w", err)
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(setupOptions{exclusive: !dryRun})
	if err != nil {
		return err
	}
	defer cleanup()

	return a.syncOnce(cmd.OutOrStdout(), dryRun)
}

// syncOnce runs one scan and one synchronization pass
func (a *app) syncOnce(out io.Writer, dryRun bool) error {
	st, err := a.scan()
	if err != nil {
		return err
	}

	if dryRun {
		plan := a.engine.Plan(st)
		a.engine.LogPlan(plan)
		_, _ = fmt.Fprintf(out, "%d copies planned\n", len(plan.Copies))
		return nil
	}

	a.logger.Info("starting sync operation", "records", len(st))
	summary, err := a.engine.Sync(st)
	_, _ = fmt.Fprintf(out, "copied %d, skipped %d, failed %d\n", summary.Copied, summary.Skipped, summary.Failed)
	if err != nil {
		a.logger.Error("sync failed", "error", err)
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(setupOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	return a.printStatus(cmd.OutOrStdout(), time.Now())
}

// printStatus lists every record with its letter, status, size and age
func (a *app) printStatus(out io.Writer, now time.Time) error {
	st, err := a.scan()
	if err != nil {
		return err
	}

	if len(st) == 0 {
		_, _ = fmt.Fprintln(out, "no saves found")
		return nil
	}

	for i, record := range st {
		letter := " "
		if r, ok := reconcile.Letter(i); ok {
			letter = string(r)
		}
		_, _ = fmt.Fprintf(out, "%s) %s %-5s %-40s %8s  %s\n",
			letter,
			record.Code(),
			record.Arrows(),
			record.Name(),
			recordSize(record),
			humanize.RelTime(record.Recency(), now, "ago", "from now"))
	}

	counts := st.Counts()
	_, _ = fmt.Fprintf(out, "\n%d synced, %d save only, %d backup only\n",
		counts[state.Synced{}.Code()],
		counts[state.OriginOnly{}.Code()],
		counts[state.BackupOnly{}.Code()])
	return nil
}

// recordSize returns the human-readable size of the record's primary copy
func recordSize(record state.Record) string {
	var path string
	switch r := record.(type) {
	case state.OriginOnly:
		path = r.Path
	case state.BackupOnly:
		path = r.Path
	case state.Synced:
		path = r.OriginPath
	default:
		panic(fmt.Sprintf("unknown record type %T", record))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, cleanup, err := setup(setupOptions{exclusive: true})
	if err != nil {
		return err
	}
	defer cleanup()

	return a.deleteSave(args[0], assumeYes, cmd.InOrStdin(), cmd.OutOrStdout())
}

// deleteSave removes the record addressed by letter from both directories
func (a *app) deleteSave(letter string, yes bool, in io.Reader, out io.Writer) error {
	runes := []rune(letter)
	if len(runes) != 1 {
		return fmt.Errorf("expected a single letter, got %q", letter)
	}
	index, ok := reconcile.IndexOf(runes[0])
	if !ok {
		return fmt.Errorf("expected a letter between a and z, got %q", letter)
	}

	st, err := a.scan()
	if err != nil {
		return err
	}
	record, ok := st.At(index)
	if !ok {
		return fmt.Errorf("no save at %s (%d saves found)", letter, len(st))
	}

	if !yes {
		confirmed, err := confirm(in, out, fmt.Sprintf("Delete %s from both directories?", record.Name()))
		if err != nil {
			return err
		}
		if !confirmed {
			_, _ = fmt.Fprintln(out, "aborted")
			return nil
		}
	}

	if _, err := a.engine.Tick(st, reconcile.Delete{Index: index}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "deleted %s\n", record.Name())
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
