package codec

import (
	"errors"
	"fmt"
	"os"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/util"
)

// Migrate reads the files at from, which may use an older column layout,
// and writes them in the canonical layout to to. It refuses when to already
// holds data unless opts.Force is set. The source files are left untouched.
func Migrate(from, to Paths, opts SaveOptions, sink EventSink) (*catalog.Store, *LoadResult, error) {
	if !exists(from.Pieces) && !exists(from.Setlists) {
		return nil, nil, fmt.Errorf("no data at %s or %s: %w", from.Pieces, from.Setlists, util.ErrNotFound)
	}

	if !opts.Force {
		for _, path := range []string{to.Pieces, to.Setlists} {
			n, err := countDataRows(path)
			if err != nil {
				return nil, nil, err
			}
			if n > 0 {
				return nil, nil, fmt.Errorf("%s already holds %d rows: %w", path, n, ErrRefuseOverwrite)
			}
		}
	}

	src := New(from, sink)
	store, result, err := src.load(false)
	if err != nil {
		return nil, nil, err
	}

	dst := New(to, sink)
	if err := dst.Save(store, opts); err != nil {
		return nil, nil, err
	}

	util.InfoLog("Migrated %d pieces and %d setlists", result.Pieces, result.Setlists)
	dst.sink.LogMigrate(from.Pieces, to.Pieces, result.Pieces, result.Setlists)

	return store, result, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
