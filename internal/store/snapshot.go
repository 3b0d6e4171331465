package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/repertoire/internal/catalog"
)

// Snapshot describes one completed export
type Snapshot struct {
	ID         int64
	ExportedAt time.Time
	Pieces     int
	Setlists   int
	Items      int
}

// Rows returns the number of rows the export wrote to the catalog tables
func (s *Snapshot) Rows() int {
	return s.Pieces + s.Setlists + s.Items
}

// SnapshotRows returns how many rows WriteSnapshot will insert for cat,
// for sizing a progress bar
func SnapshotRows(cat *catalog.Store) int {
	n := len(cat.Pieces()) + len(cat.Setlists())
	for _, sl := range cat.Setlists() {
		n += cat.ItemCount(sl.ID)
	}
	return n
}

// WriteSnapshot replaces the catalog tables with the contents of cat in a
// single transaction. progress, if non-nil, is called once per inserted row.
func (s *Store) WriteSnapshot(cat *catalog.Store, progress func()) (*Snapshot, error) {
	tick := func() {
		if progress != nil {
			progress()
		}
	}

	snap := &Snapshot{ExportedAt: time.Now().UTC().Truncate(time.Second)}

	err := s.Transaction(func(tx *sql.Tx) error {
		for _, table := range []string{"setlist_items", "setlists", "pieces"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		pieceStmt, err := tx.Prepare(`
			INSERT INTO pieces (id, display_id, title, composer, genre, readiness, owner_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare piece insert: %w", err)
		}
		defer pieceStmt.Close()

		for _, p := range cat.Pieces() {
			if _, err := pieceStmt.Exec(p.ID, p.DisplayID, p.Title, p.Composer, p.Genre,
				string(p.Readiness), p.OwnerID, nullTime(p.CreatedAt), nullTime(p.UpdatedAt)); err != nil {
				return fmt.Errorf("failed to insert piece %d: %w", p.ID, err)
			}
			snap.Pieces++
			tick()
		}

		setlistStmt, err := tx.Prepare(`
			INSERT INTO setlists (id, display_id, title, date, location, owner_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare setlist insert: %w", err)
		}
		defer setlistStmt.Close()

		itemStmt, err := tx.Prepare(`
			INSERT INTO setlist_items (id, setlist_id, piece_id, position)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare item insert: %w", err)
		}
		defer itemStmt.Close()

		for _, sl := range cat.Setlists() {
			if _, err := setlistStmt.Exec(sl.ID, sl.DisplayID, sl.Title, sl.Date, sl.Location, sl.OwnerID); err != nil {
				return fmt.Errorf("failed to insert setlist %d: %w", sl.ID, err)
			}
			snap.Setlists++
			tick()

			for _, it := range cat.OrderedItems(sl.ID) {
				if _, err := itemStmt.Exec(it.ID, it.SetlistID, it.PieceID, it.Order); err != nil {
					return fmt.Errorf("failed to insert item %d of setlist %d: %w", it.Order, sl.ID, err)
				}
				snap.Items++
				tick()
			}
		}

		result, err := tx.Exec(`
			INSERT INTO snapshots (exported_at, pieces, setlists, items)
			VALUES (?, ?, ?, ?)
		`, snap.ExportedAt, snap.Pieces, snap.Setlists, snap.Items)
		if err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}
		snap.ID, _ = result.LastInsertId()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// LastSnapshot returns the most recent export, or nil if there is none
func (s *Store) LastSnapshot() (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.QueryRow(`
		SELECT id, exported_at, pieces, setlists, items
		FROM snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&snap.ID, &snap.ExportedAt, &snap.Pieces, &snap.Setlists, &snap.Items)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last snapshot: %w", err)
	}

	return snap, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
