package state

import (
	"fmt"
	"path/filepath"
	"time"
)

// Record classifies one save by which directories hold a copy. The variants
// are OriginOnly, BackupOnly and Synced; the set is closed.
type Record interface {
	// Name is the base name shared by both sides.
	Name() string
	// Recency is the timestamp used for display ordering.
	Recency() time.Time
	// Code is the short status code shown next to the name.
	Code() string
	// Arrows shows the direction of the pending copy.
	Arrows() string
	String() string

	isRecord()
}

// OriginOnly is a save present only in the save directory
type OriginOnly struct {
	Path    string
	ModTime time.Time
}

// BackupOnly is a save present only in the backup directory
type BackupOnly struct {
	Path    string
	ModTime time.Time
}

// Synced is a save present in both directories. The contents are not
// compared.
type Synced struct {
	OriginPath    string
	BackupPath    string
	OriginModTime time.Time
	BackupModTime time.Time
}

func (r OriginOnly) Name() string       { return filepath.Base(r.Path) }
func (r OriginOnly) Recency() time.Time { return r.ModTime }
func (OriginOnly) Code() string         { return "SAVE" }
func (OriginOnly) Arrows() string       { return "S<-xB" }
func (r OriginOnly) String() string     { return format(r) }
func (OriginOnly) isRecord()            {}

func (r BackupOnly) Name() string       { return filepath.Base(r.Path) }
func (r BackupOnly) Recency() time.Time { return r.ModTime }
func (BackupOnly) Code() string         { return "BACK" }
func (BackupOnly) Arrows() string       { return "Sx->B" }
func (r BackupOnly) String() string     { return format(r) }
func (BackupOnly) isRecord()            {}

func (r Synced) Name() string { return filepath.Base(r.OriginPath) }

// Recency is the later of the two modification times
func (r Synced) Recency() time.Time {
	if r.BackupModTime.After(r.OriginModTime) {
		return r.BackupModTime
	}
	return r.OriginModTime
}

func (Synced) Code() string     { return "SYNC" }
func (Synced) Arrows() string   { return "S<->B" }
func (r Synced) String() string { return format(r) }
func (Synced) isRecord()        {}

func format(r Record) string {
	return fmt.Sprintf("%s %s %s", r.Code(), r.Arrows(), r.Name())
}
