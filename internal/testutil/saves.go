// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// BaseTime is a fixed reference time for seeded files. Tests offset from it
// so ordering does not depend on the wall clock.
var BaseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Dirs creates a save directory and a backup directory under t.TempDir().
func Dirs(t *testing.T) (saveDir, backupDir string) {
	t.Helper()

	root := t.TempDir()
	saveDir = filepath.Join(root, "saves")
	backupDir = filepath.Join(root, "backup")
	require.NoError(t, os.MkdirAll(saveDir, 0755))
	require.NoError(t, os.MkdirAll(backupDir, 0755))
	return saveDir, backupDir
}

// WriteFile writes content to dir/name and sets its mtime to BaseTime+offset.
func WriteFile(t *testing.T, dir, name, content string, offset time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	mtime := BaseTime.Add(offset)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

// ReadFile returns the content of dir/name.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

// Names returns the sorted entry names of dir.
func Names(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Exists reports whether path exists.
func Exists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	return true
}
