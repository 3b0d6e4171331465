package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/util"
)

// Save writes both collections. A collection that is empty while its file
// still holds data rows is not written unless opts.Force is set; the other
// collection is still saved and the refusal is returned wrapping
// ErrRefuseOverwrite. A write failure aborts immediately and leaves the
// previous file in place.
func (c *Codec) Save(store *catalog.Store, opts SaveOptions) error {
	var refused []error

	for _, f := range []struct {
		kind   catalog.Kind
		path   string
		header []string
		rows   [][]string
	}{
		{catalog.KindPiece, c.paths.Pieces, PieceHeader, pieceRows(store)},
		{catalog.KindSetlist, c.paths.Setlists, SetlistHeader, setlistRows(store)},
	} {
		if len(f.rows) == 0 && !opts.Force {
			onDisk, err := countDataRows(f.path)
			if err != nil {
				return err
			}
			if onDisk > 0 {
				util.WarnLog("Refusing to overwrite %s (%d rows) with an empty %s collection", f.path, onDisk, f.kind)
				c.sink.LogRefuse(f.path, f.kind.String(), onDisk)
				refused = append(refused, fmt.Errorf("%s: %w", f.path, ErrRefuseOverwrite))
				continue
			}
		}

		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
		}
		if err := writeAtomic(f.path, f.header, f.rows); err != nil {
			return err
		}
		util.DebugLog("Saved %d %ss to %s", len(f.rows), f.kind, f.path)
		c.sink.LogSave(f.path, f.kind.String(), len(f.rows))
	}

	return errors.Join(refused...)
}

func pieceRows(store *catalog.Store) [][]string {
	pieces := store.Pieces()
	rows := make([][]string, 0, len(pieces))
	for _, p := range pieces {
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.DisplayID),
			p.Title,
			p.Composer,
			p.Genre,
			string(p.Readiness),
			strconv.Itoa(p.OwnerID),
			formatTime(p.CreatedAt),
			formatTime(p.UpdatedAt),
		})
	}
	return rows
}

func setlistRows(store *catalog.Store) [][]string {
	setlists := store.Setlists()
	rows := make([][]string, 0, len(setlists))
	for _, sl := range setlists {
		items := store.OrderedItems(sl.ID)
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = strconv.Itoa(it.PieceID)
		}
		rows = append(rows, []string{
			strconv.Itoa(sl.ID),
			strconv.Itoa(sl.DisplayID),
			sl.Title,
			sl.Date,
			sl.Location,
			strconv.Itoa(sl.OwnerID),
			strings.Join(ids, pieceIDSeparator),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// countDataRows returns how many non-blank data rows path holds.
// A missing file holds none.
func countDataRows(path string) (int, error) {
	t, err := readTableIfExists(path)
	if err != nil {
		return 0, err
	}
	return len(t.records) + len(t.errs), nil
}

// writeAtomic writes header and rows to a temp file next to path and
// renames it over path
func writeAtomic(path string, header []string, rows [][]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = util.RetryableRename(tmpPath, path, util.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
