package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup", ".savesyncd.lock")

	l, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	assert.FileExists(t, path)

	require.NoError(t, l.Unlock())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquire_Contended(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".savesyncd.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	defer func() { _ = first.Unlock() }()

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcquire_AfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".savesyncd.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Unlock())

	second, err := Acquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Unlock())
}

func TestUnlock_NotHeld(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), ".savesyncd.lock"))
	assert.NoError(t, l.Unlock())
}

func TestTryLock_BadDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := Acquire(filepath.Join(blocker, ".savesyncd.lock"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
