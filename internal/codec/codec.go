// Package codec persists the catalog as two delimited text files, one for
// pieces and one for setlists with their ordered piece ids.
package codec

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrMalformedRow marks a row that was skipped while loading
	ErrMalformedRow = errors.New("malformed row")

	// ErrRefuseOverwrite is returned when saving an empty collection over a
	// file that still holds data
	ErrRefuseOverwrite = errors.New("refusing to overwrite non-empty file with empty collection")
)

// Canonical headers, in column order
var (
	PieceHeader   = []string{"piece_id", "simple_id", "title", "composer", "genre", "readiness_status", "user_id", "created", "updated"}
	SetlistHeader = []string{"id", "simple_id", "title", "date", "location", "user_id", "piece_ids"}
)

// Column aliases accepted when reading. The first name is the canonical one.
var (
	pieceIDColumns     = []string{"piece_id", "id"}
	setlistIDColumns   = []string{"id", "setlist_id", "performance_id"}
	displayIDColumns   = []string{"simple_id", "display_id"}
	readinessColumns   = []string{"readiness_status", "readiness", "status"}
	ownerColumns       = []string{"user_id", "owner_id"}
	pieceIDListColumns = []string{"piece_ids", "pieces"}
)

// pieceIDSeparator joins the ordered piece ids of a setlist in one field
const pieceIDSeparator = ";"

// Paths locates the two canonical files
type Paths struct {
	Pieces   string
	Setlists string
}

// DefaultPaths returns the canonical file locations inside dir
func DefaultPaths(dir string) Paths {
	return Paths{
		Pieces:   filepath.Join(dir, "pieces.csv"),
		Setlists: filepath.Join(dir, "setlists.csv"),
	}
}

// LegacyPaths returns where older installs kept their data inside dir
func LegacyPaths(dir string) Paths {
	return Paths{
		Pieces:   filepath.Join(dir, "data", "piece_library.csv"),
		Setlists: filepath.Join(dir, "data", "setlist_library.csv"),
	}
}

// RowError describes one row skipped or partially read during load
type RowError struct {
	Path   string
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// LoadResult summarizes a load
type LoadResult struct {
	Pieces   int
	Setlists int
	Items    int

	// Backfilled counts display ids assigned after load
	Backfilled int

	// Skipped holds every row problem, in file order
	Skipped []*RowError

	// Created lists files that did not exist and were created with a header
	Created []string
}

// SaveOptions controls Save
type SaveOptions struct {
	// Force writes even when the overwrite guard would refuse
	Force bool
}

// EventSink receives codec events for the audit log.
// *report.EventLogger satisfies it.
type EventSink interface {
	LogLoad(path, kind string, rows, skipped int) error
	LogSkip(path string, line int, reason string) error
	LogSave(path, kind string, rows int) error
	LogRefuse(path, kind string, rowsOnDisk int) error
	LogMigrate(from, to string, pieces, setlists int) error
}

type nopSink struct{}

func (nopSink) LogLoad(string, string, int, int) error { return nil }
func (nopSink) LogSkip(string, int, string) error { return nil }
func (nopSink) LogSave(string, string, int) error { return nil }
func (nopSink) LogRefuse(string, string, int) error { return nil }
func (nopSink) LogMigrate(string, string, int, int) error { return nil }

// Codec reads and writes the catalog files at Paths
type Codec struct {
	paths Paths
	sink  EventSink
}

// New creates a codec. A nil sink discards events.
func New(paths Paths, sink EventSink) *Codec {
	if sink == nil {
		sink = nopSink{}
	}
	return &Codec{paths: paths, sink: sink}
}

// Paths returns the files this codec reads and writes
func (c *Codec) Paths() Paths {
	return c.paths
}
