// Package tui is the interactive host loop: it re-scans both directories on
// a fixed interval, renders the presence list and turns keystrokes into
// delete requests for the reconcile engine.
package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/schaermu/savesyncd/internal/events"
	"github.com/schaermu/savesyncd/internal/reconcile"
	"github.com/schaermu/savesyncd/internal/state"
	"github.com/schaermu/savesyncd/internal/watch"
)

// recentEvents is the number of events shown under the list.
const recentEvents = 5

// Scanner produces a fresh classification of both directories
type Scanner interface {
	Scan(saveDir, backupDir string) (state.State, error)
}

// Engine performs one reconcile step
type Engine interface {
	Tick(st state.State, pending reconcile.DeletePending) (reconcile.DeletePending, error)
}

// Options configures a Model
type Options struct {
	Scanner   Scanner
	Engine    Engine
	SaveDir   string
	BackupDir string
	Interval  time.Duration
	Logger    *slog.Logger

	// Recorder supplies the event history shown in the footer. Optional.
	Recorder *events.Recorder
	// Hints triggers an immediate re-scan when a save changes. Optional.
	Hints <-chan watch.Hint
	// Now overrides the clock used for relative times.
	Now func() time.Time
}

// tickMsg fires once per interval and drives the reconcile step.
type tickMsg time.Time

// hintMsg is delivered when the watcher reports a change.
type hintMsg watch.Hint

// Model is the bubbletea model of the host loop
type Model struct {
	scanner   Scanner
	engine    Engine
	saveDir   string
	backupDir string
	interval  time.Duration
	logger    *slog.Logger
	recorder  *events.Recorder
	hints     <-chan watch.Hint
	now       func() time.Time

	keys KeyMap
	help help.Model

	state   state.State
	pending reconcile.DeletePending
	// picked is the state a Delete index was chosen from; rescans do not
	// touch it.
	picked  state.State
	lastErr error
	notice  string
	width   int
}

// New creates the host-loop model
func New(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return Model{
		scanner:   opts.Scanner,
		engine:    opts.Engine,
		saveDir:   opts.SaveDir,
		backupDir: opts.BackupDir,
		interval:  opts.Interval,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		hints:     opts.Hints,
		now:       now,
		keys:      DefaultKeyMap,
		help:      help.New(),
		pending:   reconcile.NotDeleting{},
	}
}

// Init implements tea.Model. The first scan runs before anything is
// rendered.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return tickMsg(m.now()) },
		m.waitForHint(),
	)
}

// State returns the records currently displayed
func (m Model) State() state.State {
	return m.state
}

// Pending returns the current delete selection
func (m Model) Pending() reconcile.DeletePending {
	return m.pending
}

// Err returns the error of the most recent failed step, if any
func (m Model) Err() error {
	return m.lastErr
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.step()
		return m, m.scheduleTick()

	case hintMsg:
		m.logger.Debug("rescanning after change", "path", msg.Path)
		m.rescan()
		return m, m.waitForHint()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// step runs one iteration: scan, reconcile, rescan for display. A pending
// delete acts on the state the user picked the letter from.
func (m *Model) step() {
	target := m.picked
	if _, deleting := m.pending.(reconcile.Delete); !deleting || target == nil {
		st, err := m.scanner.Scan(m.saveDir, m.backupDir)
		if err != nil {
			m.scanFailed(err)
			return
		}
		target = st
	}

	pending, err := m.engine.Tick(target, m.pending)
	m.setPending(pending)
	if err != nil {
		m.lastErr = err
		m.logger.Error("reconcile step failed", "error", err)
	} else {
		m.lastErr = nil
	}

	m.rescan()
}

// rescan refreshes the displayed state without acting on it
func (m *Model) rescan() {
	st, err := m.scanner.Scan(m.saveDir, m.backupDir)
	if err != nil {
		m.scanFailed(err)
		return
	}
	m.state = st
}

func (m *Model) scanFailed(err error) {
	m.lastErr = err
	m.logger.Warn("scan failed, retrying next tick", "error", err)
	if m.recorder != nil {
		m.recorder.Emit(events.ScanFailed{Err: err})
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	switch m.pending.(type) {
	case reconcile.AwaitingIndex:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.setPending(reconcile.NotDeleting{})
		case key.Matches(msg, m.keys.Select):
			m.selectRecord(msg.Runes[0])
		}

	case reconcile.NotDeleting:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Delete):
			m.setPending(reconcile.AwaitingIndex{})
		}

	case reconcile.Delete:
		// waiting for the next tick to carry out the delete
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.logger.Info("delete cancelled")
			m.setPending(reconcile.NotDeleting{})
		}

	default:
		panic(fmt.Sprintf("tui: unknown delete state %T", m.pending))
	}

	return m, nil
}

// selectRecord resolves a letter against the displayed state. Letters with no
// record behind them keep the delete armed.
func (m *Model) selectRecord(r rune) {
	index, ok := reconcile.IndexOf(r)
	if !ok {
		return
	}
	record, ok := m.state.At(index)
	if !ok {
		m.notice = fmt.Sprintf("no save at %c", r)
		return
	}
	m.setPending(reconcile.Delete{Index: index})
	m.picked = m.state
	m.logger.Info("delete requested", "letter", string(r), "name", record.Name())
}

// setPending moves the delete selection and drops what belonged to the
// previous one.
func (m *Model) setPending(p reconcile.DeletePending) {
	if _, ok := p.(reconcile.Delete); !ok {
		m.picked = nil
	}
	if _, ok := p.(reconcile.AwaitingIndex); !ok {
		m.notice = ""
	}
	m.pending = p
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForHint() tea.Cmd {
	if m.hints == nil {
		return nil
	}
	hints := m.hints
	return func() tea.Msg {
		h, ok := <-hints
		if !ok {
			return nil
		}
		return hintMsg(h)
	}
}
