package events

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Limit(t *testing.T) {
	r := NewRecorder(2)
	r.Emit(Removed{Name: "a", Path: "/a"})
	r.Emit(Removed{Name: "b", Path: "/b"})
	r.Emit(Removed{Name: "c", Path: "/c"})

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, Removed{Name: "b", Path: "/b"}, got[0])
	assert.Equal(t, Removed{Name: "c", Path: "/c"}, got[1])
}

func TestRecorder_Unbounded(t *testing.T) {
	r := NewRecorder(0)
	for i := 0; i < 10; i++ {
		r.Emit(Copied{Name: "x"})
	}
	assert.Len(t, r.Events(), 10)
}

func TestMulti(t *testing.T) {
	a := NewRecorder(0)
	b := NewRecorder(0)
	Multi{a, b, Discard{}}.Emit(CopySkipped{Name: "x", To: "/b/x"})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(Copied{Name: "Saved #1.broguesave", From: "/s/Saved #1.broguesave", To: "/b/Saved #1.broguesave"})
	sink.Emit(DeleteFailed{Name: "Saved #2.broguesave", Path: "/s/Saved #2.broguesave", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="copied save" name="Saved #1.broguesave"`)
	assert.Contains(t, out, `level=ERROR msg="delete failed"`)
	assert.Contains(t, out, "error=boom")
}

func TestEventStrings(t *testing.T) {
	err := errors.New("disk full")

	assert.Equal(t, "copied a to /b/a", Copied{Name: "a", From: "/s/a", To: "/b/a"}.String())
	assert.Equal(t, "skipped a: /b/a already exists", CopySkipped{Name: "a", To: "/b/a"}.String())
	assert.Equal(t, "copy of a failed: disk full", CopyFailed{Name: "a", Err: err}.String())
	assert.Equal(t, "removed /b/a", Removed{Name: "a", Path: "/b/a"}.String())
	assert.Equal(t, "delete of a failed: disk full", DeleteFailed{Name: "a", Err: err}.String())
	assert.Equal(t, "scan failed: disk full", ScanFailed{Err: err}.String())
}
