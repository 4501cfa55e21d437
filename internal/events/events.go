// Package events defines what the reconcile engine reports about its
// actions and the sinks that consume those reports.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event is implemented by every engine event.
type Event interface {
	fmt.Stringer
	isEvent()
}

// Copied is emitted after a save was copied to the other directory.
type Copied struct {
	Name string
	From string
	To   string
}

// CopySkipped is emitted when the destination appeared between scan and copy.
type CopySkipped struct {
	Name string
	To   string
}

// CopyFailed is emitted when a copy could not be completed.
type CopyFailed struct {
	Name string
	From string
	To   string
	Err  error
}

// Removed is emitted after one side of a save was deleted.
type Removed struct {
	Name string
	Path string
}

// DeleteFailed is emitted when a delete request could not be completed.
type DeleteFailed struct {
	Name string
	Path string
	Err  error
}

// ScanFailed is emitted by hosts when a scan aborted.
type ScanFailed struct {
	Err error
}

func (e Copied) String() string      { return fmt.Sprintf("copied %s to %s", e.Name, e.To) }
func (e CopySkipped) String() string { return fmt.Sprintf("skipped %s: %s already exists", e.Name, e.To) }
func (e CopyFailed) String() string  { return fmt.Sprintf("copy of %s failed: %v", e.Name, e.Err) }
func (e Removed) String() string     { return fmt.Sprintf("removed %s", e.Path) }
func (e DeleteFailed) String() string {
	return fmt.Sprintf("delete of %s failed: %v", e.Name, e.Err)
}
func (e ScanFailed) String() string { return fmt.Sprintf("scan failed: %v", e.Err) }

func (Copied) isEvent()       {}
func (CopySkipped) isEvent()  {}
func (CopyFailed) isEvent()   {}
func (Removed) isEvent()      {}
func (DeleteFailed) isEvent() {}
func (ScanFailed) isEvent()   {}

// Sink consumes events.
type Sink interface {
	Emit(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// SlogSink writes events to a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink creates a sink logging through logger
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{Logger: logger}
}

// Emit logs e at a level matching its outcome
func (s *SlogSink) Emit(e Event) {
	ctx := context.Background()
	switch ev := e.(type) {
	case Copied:
		s.Logger.InfoContext(ctx, "copied save", "name", ev.Name, "from", ev.From, "to", ev.To)
	case CopySkipped:
		s.Logger.DebugContext(ctx, "destination already exists, skipping copy", "name", ev.Name, "to", ev.To)
	case CopyFailed:
		s.Logger.ErrorContext(ctx, "copy failed", "name", ev.Name, "from", ev.From, "to", ev.To, "error", ev.Err)
	case Removed:
		s.Logger.InfoContext(ctx, "removed save", "name", ev.Name, "path", ev.Path)
	case DeleteFailed:
		s.Logger.ErrorContext(ctx, "delete failed", "name", ev.Name, "path", ev.Path, "error", ev.Err)
	case ScanFailed:
		s.Logger.WarnContext(ctx, "scan failed", "error", ev.Err)
	}
}

// Recorder keeps the most recent events in memory, oldest first.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewRecorder creates a recorder holding at most limit events. A limit of
// zero or less keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append([]Event(nil), r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}
