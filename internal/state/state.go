// Package state builds the per-save presence classification of a save
// directory and its backup directory.
package state

import (
	"fmt"
	"sort"

	"github.com/schaermu/savesyncd/internal/fsops"
	"github.com/schaermu/savesyncd/internal/savefile"
)

// State is the ordered list of records produced by one scan. It is rebuilt
// from scratch on every scan.
type State []Record

// At returns the record at index i, or false if i is out of range
func (s State) At(i int) (Record, bool) {
	if i < 0 || i >= len(s) {
		return nil, false
	}
	return s[i], true
}

// Counts returns the number of records per status code
func (s State) Counts() map[string]int {
	counts := make(map[string]int, 3)
	for _, r := range s {
		counts[r.Code()]++
	}
	return counts
}

// Scanner classifies save files found in two directories
type Scanner struct {
	fs     fsops.FS
	filter savefile.Filter
}

// NewScanner creates a scanner reading through fsys
func NewScanner(fsys fsops.FS, filter savefile.Filter) *Scanner {
	return &Scanner{fs: fsys, filter: filter}
}

// Scan lists both directories and returns the merged classification sorted
// by recency. Any listing or stat failure aborts the scan.
func (s *Scanner) Scan(saveDir, backupDir string) (State, error) {
	originFiles, err := s.filter.Discover(s.fs, saveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list save directory: %w", err)
	}
	backupFiles, err := s.filter.Discover(s.fs, backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup directory: %w", err)
	}

	records := make(map[string]Record, len(originFiles)+len(backupFiles))

	for _, f := range originFiles {
		mtime, err := s.fs.ModTime(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read save file: %w", err)
		}
		records[f.Name] = OriginOnly{Path: f.Path, ModTime: mtime}
	}

	for _, f := range backupFiles {
		mtime, err := s.fs.ModTime(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read backup file: %w", err)
		}

		existing, ok := records[f.Name]
		if !ok {
			records[f.Name] = BackupOnly{Path: f.Path, ModTime: mtime}
			continue
		}
		// Only an origin-side record can be upgraded.
		if origin, ok := existing.(OriginOnly); ok {
			records[f.Name] = Synced{
				OriginPath:    origin.Path,
				BackupPath:    f.Path,
				OriginModTime: origin.ModTime,
				BackupModTime: mtime,
			}
		}
	}

	st := make(State, 0, len(records))
	for _, r := range records {
		st = append(st, r)
	}
	sort.Slice(st, func(i, j int) bool {
		ri, rj := st[i].Recency(), st[j].Recency()
		if !ri.Equal(rj) {
			return ri.Before(rj)
		}
		return st[i].Name() < st[j].Name()
	})

	return st, nil
}
