package savefile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schaermu/savesyncd/internal/fsops"
)

// Default filter values for Brogue CE save games
const (
	DefaultPrefix    = "Saved"
	DefaultExtension = "broguesave"
)

// Filter decides which directory entries are save files
type Filter struct {
	Prefix    string
	Extension string   // without the leading dot
	Exclude   []string // doublestar globs matched against the base name
}

// DefaultFilter returns the filter for Brogue CE saves
func DefaultFilter() Filter {
	return Filter{Prefix: DefaultPrefix, Extension: DefaultExtension}
}

// Validate checks the exclude patterns and the extension
func (f Filter) Validate() error {
	if f.Extension == "" {
		return fmt.Errorf("extension is required")
	}
	if strings.HasPrefix(f.Extension, ".") {
		return fmt.Errorf("extension must not start with a dot: %s", f.Extension)
	}
	for _, pattern := range f.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	return nil
}

// MatchName returns true if a regular file with this base name is a save
func (f Filter) MatchName(name string) bool {
	if filepath.Ext(name) != "."+f.Extension {
		return false
	}
	if !strings.HasPrefix(name, f.Prefix) {
		return false
	}
	return !f.isExcluded(name)
}

// Match returns true if the entry is a save file. Directories never match,
// whatever their name.
func (f Filter) Match(entry fsops.Entry) bool {
	return entry.Regular && f.MatchName(entry.Name)
}

// Discover lists dir and returns the save files in it
func (f Filter) Discover(fsys fsops.FS, dir string) ([]fsops.Entry, error) {
	entries, err := fsys.ListDir(dir)
	if err != nil {
		return nil, err
	}

	var saves []fsops.Entry
	for _, entry := range entries {
		if f.Match(entry) {
			saves = append(saves, entry)
		}
	}
	return saves, nil
}

func (f Filter) isExcluded(name string) bool {
	for _, pattern := range f.Exclude {
		// Patterns are validated up front.
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
