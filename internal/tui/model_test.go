package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schaermu/savesyncd/internal/events"
	"github.com/schaermu/savesyncd/internal/fsops"
	"github.com/schaermu/savesyncd/internal/reconcile"
	"github.com/schaermu/savesyncd/internal/savefile"
	"github.com/schaermu/savesyncd/internal/state"
	"github.com/schaermu/savesyncd/internal/testutil"
	"github.com/schaermu/savesyncd/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	saveDir   string
	backupDir string
	recorder  *events.Recorder
	model     Model
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	saveDir, backupDir := testutil.Dirs(t)
	recorder := events.NewRecorder(10)
	logger := discardLogger()
	fsys := fsops.OS{}

	return &harness{
		saveDir:   saveDir,
		backupDir: backupDir,
		recorder:  recorder,
		model: New(Options{
			Scanner:   state.NewScanner(fsys, savefile.DefaultFilter()),
			Engine:    reconcile.NewEngine(fsys, saveDir, backupDir, recorder, logger),
			SaveDir:   saveDir,
			BackupDir: backupDir,
			Interval:  250 * time.Millisecond,
			Logger:    logger,
			Recorder:  recorder,
			Now:       func() time.Time { return testutil.BaseTime.Add(time.Hour) },
		}),
	}
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()

	updated, cmd := h.model.Update(msg)
	model, ok := updated.(Model)
	require.True(t, ok)
	h.model = model
	return cmd
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	cmd := h.send(t, tickMsg(time.Now()))
	assert.NotNil(t, cmd, "next tick must be scheduled")
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTick_SyncsBothWays(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	testutil.WriteFile(t, h.backupDir, "Saved #2.broguesave", "two", 2*time.Minute)

	h.tick(t)

	assert.Equal(t, "two", testutil.ReadFile(t, h.saveDir, "Saved #2.broguesave"))
	assert.Equal(t, "one", testutil.ReadFile(t, h.backupDir, "Saved #1.broguesave"))

	st := h.model.State()
	require.Len(t, st, 2)
	for _, r := range st {
		assert.IsType(t, state.Synced{}, r)
	}
	assert.NoError(t, h.model.Err())
	assert.Len(t, h.recorder.Events(), 2)
}

func TestDeleteFlow(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	testutil.WriteFile(t, h.saveDir, "Saved #2.broguesave", "two", 2*time.Minute)
	h.tick(t)

	assert.Nil(t, h.send(t, runes("d")))
	assert.Equal(t, reconcile.AwaitingIndex{}, h.model.Pending())
	assert.Contains(t, h.model.View(), "delete which save?")

	h.send(t, runes("b"))
	assert.Equal(t, reconcile.Delete{Index: 1}, h.model.Pending())
	assert.Contains(t, h.model.View(), "deleting b) Saved #2.broguesave")

	h.tick(t)
	assert.Equal(t, reconcile.NotDeleting{}, h.model.Pending())
	assert.Equal(t, []string{"Saved #1.broguesave"}, testutil.Names(t, h.saveDir))
	assert.Equal(t, []string{"Saved #1.broguesave"}, testutil.Names(t, h.backupDir))
	require.Len(t, h.model.State(), 1)
}

func TestDelete_UsesDisplayedState(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	testutil.WriteFile(t, h.saveDir, "Saved #3.broguesave", "three", 3*time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, runes("b"))

	// a newer save appears between the keypress and the tick; the letter
	// still refers to what was on screen
	testutil.WriteFile(t, h.saveDir, "Saved #2.broguesave", "two", 2*time.Minute)
	h.tick(t)

	assert.False(t, testutil.Exists(t, filepath.Join(h.saveDir, "Saved #3.broguesave")))
	assert.True(t, testutil.Exists(t, filepath.Join(h.saveDir, "Saved #2.broguesave")))
}

func TestDelete_HintBeforeTickKeepsPickedSave(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	testutil.WriteFile(t, h.saveDir, "Saved #3.broguesave", "three", 3*time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, runes("a"))
	require.Equal(t, reconcile.Delete{Index: 0}, h.model.Pending())

	// the game rewrites the picked save, which moves it to the end of the list
	path := testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one, later", 5*time.Minute)
	h.send(t, hintMsg(watch.Hint{Path: path, Op: "WRITE"}))
	require.Equal(t, "Saved #3.broguesave", h.model.State()[0].Name())
	assert.Contains(t, h.model.View(), "deleting a) Saved #1.broguesave")

	h.tick(t)

	assert.Equal(t, reconcile.NotDeleting{}, h.model.Pending())
	assert.Equal(t, []string{"Saved #3.broguesave"}, testutil.Names(t, h.saveDir))
	assert.Equal(t, []string{"Saved #3.broguesave"}, testutil.Names(t, h.backupDir))
}

func TestDelete_CancelBeforeTick(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, runes("a"))
	assert.Contains(t, h.model.View(), "esc cancel")

	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, reconcile.NotDeleting{}, h.model.Pending())

	h.tick(t)
	assert.Equal(t, []string{"Saved #1.broguesave"}, testutil.Names(t, h.saveDir))
	assert.Equal(t, []string{"Saved #1.broguesave"}, testutil.Names(t, h.backupDir))
}

func TestDelete_CancelWhileStillPending(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, runes("a"))

	// an engine that leaves the request pending
	h.model.engine = &stubEngine{}
	h.tick(t)
	require.Equal(t, reconcile.Delete{Index: 0}, h.model.Pending())

	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, reconcile.NotDeleting{}, h.model.Pending())
	assert.Nil(t, h.model.picked)
}

func TestArmed_LettersSelectInsteadOfCommands(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("Saved #%d.broguesave", i+1)
		testutil.WriteFile(t, h.saveDir, name, name, time.Duration(i)*time.Minute)
	}
	h.tick(t)

	h.send(t, runes("d"))
	cmd := h.send(t, runes("d"))
	assert.False(t, isQuit(cmd))
	assert.Equal(t, reconcile.Delete{Index: 3}, h.model.Pending())
}

func TestArmed_QWithoutRecordKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	cmd := h.send(t, runes("q"))

	assert.False(t, isQuit(cmd))
	assert.Equal(t, reconcile.AwaitingIndex{}, h.model.Pending())
	assert.Contains(t, h.model.View(), "no save at q")
}

func TestArmed_Cancel(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, reconcile.NotDeleting{}, h.model.Pending())
}

func TestArmed_IgnoresOtherKeys(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	h.tick(t)

	h.send(t, runes("d"))
	h.send(t, runes("A"))
	h.send(t, runes("1"))
	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, reconcile.AwaitingIndex{}, h.model.Pending())
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	assert.True(t, isQuit(h.send(t, runes("q"))))
}

func TestForceQuitWhileArmed(t *testing.T) {
	h := newHarness(t)
	h.send(t, runes("d"))
	assert.True(t, isQuit(h.send(t, tea.KeyMsg{Type: tea.KeyCtrlC})))
}

// failingScanner fails every scan after the first ok scans
type failingScanner struct {
	inner Scanner
	ok    int
	calls int
}

func (s *failingScanner) Scan(saveDir, backupDir string) (state.State, error) {
	s.calls++
	if s.calls > s.ok {
		return nil, errors.New("listing failed")
	}
	return s.inner.Scan(saveDir, backupDir)
}

type stubEngine struct {
	calls int
	err   error
}

func (e *stubEngine) Tick(_ state.State, pending reconcile.DeletePending) (reconcile.DeletePending, error) {
	e.calls++
	return pending, e.err
}

func TestTick_ScanFailureSkipsStep(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	h.tick(t)
	require.Len(t, h.model.State(), 1)

	engine := &stubEngine{}
	h.model.scanner = &failingScanner{inner: h.model.scanner}
	h.model.engine = engine
	h.tick(t)

	assert.Zero(t, engine.calls)
	assert.ErrorContains(t, h.model.Err(), "listing failed")
	assert.Len(t, h.model.State(), 1, "previous state stays on screen")
	assert.Contains(t, h.model.View(), "error: listing failed")
	assert.IsType(t, events.ScanFailed{}, h.recorder.Events()[len(h.recorder.Events())-1])
}

func TestTick_EngineErrorKeepsRunning(t *testing.T) {
	h := newHarness(t)
	h.model.engine = &stubEngine{err: errors.New("disk full")}

	h.tick(t)
	assert.ErrorContains(t, h.model.Err(), "disk full")

	h.model.engine = &stubEngine{}
	h.tick(t)
	assert.NoError(t, h.model.Err())
}

func TestHint_Rescans(t *testing.T) {
	hints := make(chan watch.Hint, 1)
	h := newHarness(t)
	h.model.hints = hints
	h.tick(t)
	require.Empty(t, h.model.State())

	path := testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", time.Minute)
	hints <- watch.Hint{Path: path, Op: "CREATE"}

	cmd := h.model.waitForHint()
	require.NotNil(t, cmd)
	next := h.send(t, cmd())

	require.Len(t, h.model.State(), 1)
	assert.IsType(t, state.OriginOnly{}, h.model.State()[0])
	assert.NotNil(t, next, "hint listener must be re-armed")
	// a hint never copies
	assert.Empty(t, testutil.Names(t, h.backupDir))
}

func TestView(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.saveDir, "Saved #1.broguesave", "one", 0)
	testutil.WriteFile(t, h.backupDir, "Saved #2.broguesave", "two", 30*time.Minute)
	h.model.engine = &stubEngine{}
	h.tick(t)

	view := h.model.View()
	assert.Contains(t, view, "a) SAVE S<-xB Saved #1.broguesave  1 hour ago")
	assert.Contains(t, view, "b) BACK Sx->B Saved #2.broguesave  30 minutes ago")
	assert.Contains(t, view, h.saveDir)
	assert.Contains(t, view, "delete a save")
}

func TestView_Empty(t *testing.T) {
	h := newHarness(t)
	h.tick(t)
	assert.Contains(t, h.model.View(), "no saves found")
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	assert.NotNil(t, h.model.Init())
	assert.Nil(t, h.model.waitForHint())
}
