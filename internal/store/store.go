// Package store mirrors the catalog into a SQLite database for ad-hoc
// querying. The delimited files stay authoritative: a snapshot is replaced
// wholesale on every export and is never read back into the catalog.
package store

import (
	"database/sql"
	"fmt"

	"github.com/franz/repertoire/internal/util"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is an open snapshot database
type Store struct {
	db   *sql.DB
	path string
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	NetworkOptimized bool // Apply pragmas suited to a database on a network share
}

// networkPragmas trade durability for fewer round-trips. A snapshot can
// always be exported again, so losing the last commit is acceptable.
var networkPragmas = []string{
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA cache_size = -16000", // KB
}

// Open opens or creates a snapshot database with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a snapshot database and brings its
// schema up to date
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	// items reference setlists with ON DELETE CASCADE
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// pragmas are per connection, so keep exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}

	if opts.NetworkOptimized {
		for _, pragma := range networkPragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
			}
		}
		util.DebugLog("Applied network pragmas to %s", path)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for ad-hoc queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file the store was opened on
func (s *Store) Path() string {
	return s.path
}

// SQLiteVersion reports the version of the embedded SQLite engine, or ""
// when it cannot be queried
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check
func (s *Store) CheckIntegrity() error {
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// migrate applies every migration newer than the recorded version
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}
	if version >= currentSchemaVersion {
		return nil
	}

	return s.Transaction(func(tx *sql.Tx) error {
		for _, m := range migrations {
			if m.version <= version {
				continue
			}
			if _, err := tx.Exec(m.sql); err != nil {
				return fmt.Errorf("failed to apply schema v%d (%s): %w", m.version, m.name, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
				return fmt.Errorf("failed to record schema v%d: %w", m.version, err)
			}
			util.DebugLog("Applied schema v%d: %s", m.version, m.name)
		}
		return nil
	})
}

// getSchemaVersion returns the highest applied version, 0 for a new file
func (s *Store) getSchemaVersion() (int, error) {
	var tables int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tables)
	if err != nil || tables == 0 {
		return 0, err
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

// Transaction runs fn in a transaction, committing only when fn succeeds
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
