// Package fsops provides the filesystem primitives the scanner and the
// reconcile engine operate through.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrDestinationExists is returned by CopyNoClobber when the destination
// already exists. Callers treat it as a skip.
var ErrDestinationExists = errors.New("destination already exists")

// Operation names used in IOError.
const (
	OpList   = "list"
	OpStat   = "stat"
	OpCopy   = "copy"
	OpRemove = "remove"
)

// IOError describes a failed filesystem primitive.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Entry is a directory entry as seen by the scanner.
type Entry struct {
	Name    string
	Path    string
	Regular bool // regular file after following symlinks
}

// FS is the set of filesystem primitives the core depends on
type FS interface {
	// ListDir returns the entries of dir. Entries that vanish while being
	// listed are omitted.
	ListDir(dir string) ([]Entry, error)
	// ModTime returns the last-modified time of path.
	ModTime(path string) (time.Time, error)
	// CopyNoClobber copies src to dst unless dst already exists, in which
	// case it returns ErrDestinationExists.
	CopyNoClobber(src, dst string) error
	// Remove deletes path. A missing path is not an error.
	Remove(path string) error
}

// OS implements FS on top of the local filesystem
type OS struct{}

// ListDir lists dir, resolving symlinks so that only entries pointing at
// regular files are reported as Regular.
func (OS) ListDir(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: OpList, Path: dir, Err: err}
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		path := filepath.Join(dir, d.Name())
		regular := d.Type().IsRegular()
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				// Dangling link, treat as not a save.
				regular = false
			} else {
				regular = info.Mode().IsRegular()
			}
		}
		entries = append(entries, Entry{Name: d.Name(), Path: path, Regular: regular})
	}
	return entries, nil
}

// ModTime stats path and returns its modification time
func (OS) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, &IOError{Op: OpStat, Path: path, Err: err}
	}
	return info.ModTime(), nil
}

// CopyNoClobber copies src to dst. The content is written to a temp file
// next to dst and published with a hard link, which fails when dst exists.
// On filesystems without hard links the temp file is copied again with
// O_EXCL.
func (OS) CopyNoClobber(src, dst string) error {
	if err := copyNoClobber(src, dst); err != nil {
		if errors.Is(err, ErrDestinationExists) {
			return err
		}
		return &IOError{Op: OpCopy, Path: src, Err: err}
	}
	return nil
}

// Remove deletes path, ignoring a missing file
func (OS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: OpRemove, Path: path, Err: err}
	}
	return nil
}

func copyNoClobber(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return ErrDestinationExists
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".savesyncd-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(srcInfo.Mode().Perm()); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	// Keep the source mtime so the copy sorts next to the original.
	if err := os.Chtimes(tmpPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return err
	}

	err = os.Link(tmpPath, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return ErrDestinationExists
	default:
		return copyExclusive(tmpPath, dst, srcInfo)
	}
}

// copyExclusive is the fallback for filesystems that reject hard links.
func copyExclusive(tmpPath, dst string, srcInfo fs.FileInfo) error {
	in, err := os.Open(tmpPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrDestinationExists
		}
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}
