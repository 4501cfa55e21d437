// Package reconcile copies saves that exist on one side only to the other
// side and executes delete requests against both directories.
package reconcile

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/schaermu/savesyncd/internal/events"
	"github.com/schaermu/savesyncd/internal/fsops"
	"github.com/schaermu/savesyncd/internal/state"
)

// Direction names where a copy goes
type Direction string

const (
	ToBackup Direction = "backup"
	ToSave   Direction = "save"
)

// CopyOp is one planned no-clobber copy
type CopyOp struct {
	Name      string
	Source    string
	Dest      string
	Direction Direction
}

// Plan represents the copies needed to converge both directories
type Plan struct {
	Copies []CopyOp
}

// Summary counts the outcome of a synchronization pass
type Summary struct {
	Copied  int
	Skipped int
	Failed  int
}

// Engine reconciles a save directory with its backup directory
type Engine struct {
	fs        fsops.FS
	sink      events.Sink
	logger    *slog.Logger
	saveDir   string
	backupDir string
}

// NewEngine creates a new reconcile engine
func NewEngine(fsys fsops.FS, saveDir, backupDir string, sink events.Sink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Engine{
		fs:        fsys,
		sink:      sink,
		logger:    logger,
		saveDir:   saveDir,
		backupDir: backupDir,
	}
}

// Tick performs one reconcile step. A resolvable Delete request is executed
// and nothing else happens in that tick; the returned pending value is then
// NotDeleting whether or not the removal succeeded. A Delete whose index is
// outside st is left pending for a fresher state. In every other case the
// synchronization pass runs.
func (e *Engine) Tick(st state.State, pending DeletePending) (DeletePending, error) {
	if del, ok := pending.(Delete); ok {
		if record, ok := st.At(del.Index); ok {
			return NotDeleting{}, e.Delete(record)
		}
		e.logger.Debug("delete index out of range, waiting for fresher state",
			"index", del.Index,
			"records", len(st))
	}

	_, err := e.Sync(st)
	return pending, err
}

// Plan computes the copies for every record not present on both sides
func (e *Engine) Plan(st state.State) *Plan {
	plan := &Plan{Copies: make([]CopyOp, 0)}

	for _, record := range st {
		switch r := record.(type) {
		case state.OriginOnly:
			plan.Copies = append(plan.Copies, CopyOp{
				Name:      r.Name(),
				Source:    r.Path,
				Dest:      filepath.Join(e.backupDir, r.Name()),
				Direction: ToBackup,
			})
		case state.BackupOnly:
			plan.Copies = append(plan.Copies, CopyOp{
				Name:      r.Name(),
				Source:    r.Path,
				Dest:      filepath.Join(e.saveDir, r.Name()),
				Direction: ToSave,
			})
		case state.Synced:
			// nothing to do
		default:
			panic(fmt.Sprintf("reconcile: unknown record type %T", record))
		}
	}

	return plan
}

// Sync copies every one-sided save to the other directory without
// overwriting existing files. Each copy is attempted even if an earlier one
// failed; all failures are returned joined.
func (e *Engine) Sync(st state.State) (Summary, error) {
	plan := e.Plan(st)

	var summary Summary
	var errs []error
	for _, op := range plan.Copies {
		err := e.fs.CopyNoClobber(op.Source, op.Dest)
		switch {
		case err == nil:
			summary.Copied++
			e.sink.Emit(events.Copied{Name: op.Name, From: op.Source, To: op.Dest})
		case errors.Is(err, fsops.ErrDestinationExists):
			summary.Skipped++
			e.sink.Emit(events.CopySkipped{Name: op.Name, To: op.Dest})
		default:
			summary.Failed++
			e.sink.Emit(events.CopyFailed{Name: op.Name, From: op.Source, To: op.Dest, Err: err})
			errs = append(errs, fmt.Errorf("failed to copy %s to %s directory: %w", op.Name, op.Direction, err))
		}
	}

	return summary, errors.Join(errs...)
}

// Delete removes every copy of the record. For a synced pair the backup is
// removed first; if that fails the save-directory copy is kept.
func (e *Engine) Delete(record state.Record) error {
	switch r := record.(type) {
	case state.OriginOnly:
		return e.remove(r.Name(), r.Path)
	case state.BackupOnly:
		return e.remove(r.Name(), r.Path)
	case state.Synced:
		if err := e.remove(r.Name(), r.BackupPath); err != nil {
			return err
		}
		return e.remove(r.Name(), r.OriginPath)
	default:
		panic(fmt.Sprintf("reconcile: unknown record type %T", record))
	}
}

func (e *Engine) remove(name, path string) error {
	if err := e.fs.Remove(path); err != nil {
		e.sink.Emit(events.DeleteFailed{Name: name, Path: path, Err: err})
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	e.sink.Emit(events.Removed{Name: name, Path: path})
	return nil
}

// LogPlan logs the planned copies for dry-run
func (e *Engine) LogPlan(plan *Plan) {
	for _, op := range plan.Copies {
		e.logger.Info("[dry-run] would copy",
			"name", op.Name,
			"to", op.Direction,
			"source", op.Source,
			"dest", op.Dest)
	}
}
