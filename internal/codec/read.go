package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/util"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// record is one data row with its 1-based line number in the file
type record struct {
	line   int
	fields []string
}

// table is a parsed delimited file with columns located by header name
type table struct {
	path    string
	comma   rune
	width   int
	columns map[string]int
	records []record
	errs    []*RowError
}

// get returns the trimmed value of the first present column among names
func (t *table) get(rec record, names ...string) (string, bool) {
	for _, name := range names {
		idx, ok := t.columns[name]
		if !ok {
			continue
		}
		if idx >= len(rec.fields) {
			return "", true
		}
		return strings.TrimSpace(rec.fields[idx]), true
	}
	return "", false
}

// list returns the value of a ';'-joined list column. In a file delimited
// by ';' the list itself was split into fields, so when it is the last
// column every trailing field belongs to it.
func (t *table) list(rec record, names ...string) string {
	if t.comma == ';' {
		for _, name := range names {
			idx, ok := t.columns[name]
			if !ok || idx != t.width-1 || idx >= len(rec.fields) {
				continue
			}
			return strings.TrimSpace(strings.Join(rec.fields[idx:], pieceIDSeparator))
		}
	}
	v, _ := t.get(rec, names...)
	return v
}

func (t *table) has(names ...string) bool {
	for _, name := range names {
		if _, ok := t.columns[name]; ok {
			return true
		}
	}
	return false
}

func (t *table) rowError(line int, format string, args ...any) *RowError {
	e := &RowError{Path: t.path, Line: line, Reason: fmt.Sprintf(format, args...)}
	t.errs = append(t.errs, e)
	return e
}

// Load reads both files into a fresh store. Missing files are created
// with only a header. Malformed rows are skipped and reported in the
// result; only I/O failures are returned as errors.
func (c *Codec) Load() (*catalog.Store, *LoadResult, error) {
	return c.load(true)
}

// Inspect is Load without creating missing files
func (c *Codec) Inspect() (*catalog.Store, *LoadResult, error) {
	return c.load(false)
}

// load reads both files. Without create, a missing file reads as empty.
func (c *Codec) load(create bool) (*catalog.Store, *LoadResult, error) {
	store := catalog.New()
	result := &LoadResult{}

	if create {
		for _, f := range []struct {
			path   string
			header []string
		}{
			{c.paths.Pieces, PieceHeader},
			{c.paths.Setlists, SetlistHeader},
		} {
			created, err := ensureFile(f.path, f.header)
			if err != nil {
				return nil, nil, err
			}
			if created {
				util.InfoLog("Created %s", f.path)
				result.Created = append(result.Created, f.path)
			}
		}
	}

	pieces, err := readTableIfExists(c.paths.Pieces)
	if err != nil {
		return nil, nil, err
	}
	loadPieces(store, pieces)
	result.Pieces = len(store.Pieces())

	setlists, err := readTableIfExists(c.paths.Setlists)
	if err != nil {
		return nil, nil, err
	}
	result.Items = loadSetlists(store, setlists)
	result.Setlists = len(store.Setlists())

	result.Skipped = append(append(result.Skipped, pieces.errs...), setlists.errs...)
	result.Backfilled = store.BackfillDisplayIDs()

	for _, e := range result.Skipped {
		util.WarnLog("Skipped %s", e.Error())
		c.sink.LogSkip(e.Path, e.Line, e.Reason)
	}
	if result.Backfilled > 0 {
		util.DebugLog("Assigned %d missing display ids", result.Backfilled)
	}

	c.sink.LogLoad(c.paths.Pieces, catalog.KindPiece.String(), result.Pieces, len(pieces.errs))
	c.sink.LogLoad(c.paths.Setlists, catalog.KindSetlist.String(), result.Setlists, len(setlists.errs))

	return store, result, nil
}

// ensureFile creates path with only a header row when it does not exist
func ensureFile(path string, header []string) (bool, error) {
	_, err := util.RetryableStat(path, util.DefaultRetryConfig())
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := writeAtomic(path, header, nil); err != nil {
		return false, err
	}
	return true, nil
}

// readTableIfExists is readTable, with a missing file read as empty
func readTableIfExists(path string) (*table, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &table{path: path, columns: make(map[string]int)}, nil
	}
	return readTable(path)
}

// readTable parses path. A single header column containing ';' means the
// file was written with semicolons and is parsed again with that delimiter.
func readTable(path string) (*table, error) {
	f, err := util.RetryableOpen(path, util.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	raw = bytes.ToValidUTF8(raw, []byte("\uFFFD"))

	t, err := parseTable(path, raw, ',')
	if err != nil {
		return nil, err
	}
	if len(t.columns) == 1 {
		for name := range t.columns {
			if strings.Contains(name, ";") {
				return parseTable(path, raw, ';')
			}
		}
	}
	return t, nil
}

func parseTable(path string, raw []byte, comma rune) (*table, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	t := &table{path: path, comma: comma, columns: make(map[string]int)}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	t.width = len(header)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := t.columns[key]; !dup && key != "" {
			t.columns[key] = i
		}
	}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.rowError(perr.StartLine, "unreadable row: %v", perr.Err)
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		line, _ := r.FieldPos(0)
		if blank(fields) {
			continue
		}
		t.records = append(t.records, record{line: line, fields: fields})
	}

	return t, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseID accepts a strictly positive decimal integer
func parseID(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseDisplayID returns 0 for anything that is not a positive integer so
// the entity is backfilled
func parseDisplayID(s string) int {
	n, _ := parseID(s)
	return n
}

func parseOwner(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseTime accepts RFC 3339 or a bare date. Empty means unset.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

func loadPieces(store *catalog.Store, t *table) {
	if len(t.records) > 0 && !t.has(pieceIDColumns...) {
		t.rowError(1, "header has no piece_id column")
		return
	}

	for _, rec := range t.records {
		raw, _ := t.get(rec, pieceIDColumns...)
		id, ok := parseID(raw)
		if !ok {
			t.rowError(rec.line, "invalid piece id %q", raw)
			continue
		}
		if store.Exists(catalog.KindPiece, id) {
			t.rowError(rec.line, "duplicate piece id %d", id)
			continue
		}

		p := &catalog.Piece{ID: id}
		v, _ := t.get(rec, displayIDColumns...)
		p.DisplayID = parseDisplayID(v)
		p.Title, _ = t.get(rec, "title")
		p.Composer, _ = t.get(rec, "composer")
		p.Genre, _ = t.get(rec, "genre")

		v, _ = t.get(rec, readinessColumns...)
		if r, ok := catalog.ParseReadiness(v); ok {
			p.Readiness = r
		} else {
			p.Readiness = catalog.ReadinessLearning
		}

		v, _ = t.get(rec, ownerColumns...)
		p.OwnerID = parseOwner(v)

		for _, ts := range []struct {
			column string
			dst    **time.Time
		}{
			{"created", &p.CreatedAt},
			{"updated", &p.UpdatedAt},
		} {
			v, _ := t.get(rec, ts.column)
			parsed, err := parseTime(v)
			if err != nil {
				t.rowError(rec.line, "%s: %v", ts.column, err)
			}
			*ts.dst = parsed
		}

		if err := store.PutPiece(p); err != nil {
			t.rowError(rec.line, "%v", err)
		}
	}
}

// loadSetlists rebuilds setlists and their items. Returns the item count.
func loadSetlists(store *catalog.Store, t *table) int {
	if len(t.records) > 0 && !t.has(setlistIDColumns...) {
		t.rowError(1, "header has no id column")
		return 0
	}

	items := 0
	for _, rec := range t.records {
		raw, _ := t.get(rec, setlistIDColumns...)
		id, ok := parseID(raw)
		if !ok {
			t.rowError(rec.line, "invalid setlist id %q", raw)
			continue
		}
		if store.Exists(catalog.KindSetlist, id) {
			t.rowError(rec.line, "duplicate setlist id %d", id)
			continue
		}

		sl := &catalog.Setlist{ID: id}
		v, _ := t.get(rec, displayIDColumns...)
		sl.DisplayID = parseDisplayID(v)
		sl.Title, _ = t.get(rec, "title")
		sl.Date, _ = t.get(rec, "date")
		sl.Location, _ = t.get(rec, "location")
		v, _ = t.get(rec, ownerColumns...)
		sl.OwnerID = parseOwner(v)

		if err := store.PutSetlist(sl); err != nil {
			t.rowError(rec.line, "%v", err)
			continue
		}

		list := t.list(rec, pieceIDListColumns...)
		seen := make(map[int]bool)
		order := 0
		for _, token := range strings.Split(list, pieceIDSeparator) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			pieceID, ok := parseID(token)
			if !ok {
				t.rowError(rec.line, "setlist %d: invalid piece id %q", id, token)
				continue
			}
			if seen[pieceID] {
				continue
			}
			seen[pieceID] = true
			order++
			store.InsertItem(id, pieceID, order)
			items++
		}
	}

	return items
}
