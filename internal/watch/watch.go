// Package watch turns filesystem notifications in the save and backup
// directories into debounced rescan hints. Hints never drive reconciliation
// directly; the host loop still reconciles on its own timer.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/schaermu/savesyncd/internal/savefile"
)

// Hint reports that a save file changed somewhere in a watched directory
type Hint struct {
	Path string
	Op   string
}

// Watcher watches directories for save-file changes with debouncing
type Watcher struct {
	filter   savefile.Filter
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	hints    chan Hint
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool

	debounceMu sync.Mutex
	timer      *time.Timer
	pending    Hint
}

// New creates a Watcher over dirs. Only names accepted by filter produce
// hints.
func New(dirs []string, filter savefile.Filter, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	return &Watcher{
		filter:   filter,
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
		hints:    make(chan Hint, 1),
		done:     make(chan struct{}),
	}, nil
}

// Hints returns the channel hints are delivered on. Hints arriving while one
// is still unread are coalesced into it. The channel is closed by Close.
func (w *Watcher) Hints() <-chan Hint {
	return w.hints
}

// Start starts watching for events
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true

	w.wg.Add(1)
	go w.watch()
	return nil
}

// Close stops watching and releases the underlying notifier
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.debounceMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.debounceMu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()

	// flush checks closed under mu before sending, so no send can follow
	w.mu.Lock()
	close(w.hints)
	w.mu.Unlock()
	return err
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.filter.MatchName(filepath.Base(event.Name)) {
		return
	}

	w.schedule(Hint{Path: event.Name, Op: event.Op.String()})
}

// schedule restarts the debounce timer; bursts collapse into one hint
func (w *Watcher) schedule(h Hint) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	w.pending = h
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.debounceMu.Lock()
	h := w.pending
	w.timer = nil
	w.debounceMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	select {
	case w.hints <- h:
		w.logger.Debug("save directory changed", "path", h.Path, "op", h.Op)
	default:
		// a hint is already queued
	}
}
