package store

import (
	"fmt"
)

// CountPieces returns the number of pieces in the snapshot
func (s *Store) CountPieces() (int, error) {
	return s.count("pieces")
}

// CountSetlists returns the number of setlists in the snapshot
func (s *Store) CountSetlists() (int, error) {
	return s.count("setlists")
}

// CountItems returns the number of setlist items in the snapshot
func (s *Store) CountItems() (int, error) {
	return s.count("setlist_items")
}

func (s *Store) count(table string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// ReadinessCounts returns the number of pieces per readiness value
func (s *Store) ReadinessCounts() (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT readiness, COUNT(*) FROM pieces
		GROUP BY readiness
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count readiness: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var readiness string
		var n int
		if err := rows.Scan(&readiness, &n); err != nil {
			return nil, fmt.Errorf("failed to scan readiness count: %w", err)
		}
		counts[readiness] = n
	}

	return counts, rows.Err()
}

// SetlistPieceTitles returns the piece titles of one setlist in position
// order. A dangling item yields an empty title.
func (s *Store) SetlistPieceTitles(setlistID int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(p.title, '')
		FROM setlist_items i
		LEFT JOIN pieces p ON p.id = i.piece_id
		WHERE i.setlist_id = ?
		ORDER BY i.position
	`, setlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query setlist %d: %w", setlistID, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}

	return titles, rows.Err()
}

// DanglingItemCount returns how many items refer to a missing piece
func (s *Store) DanglingItemCount() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM setlist_items i
		LEFT JOIN pieces p ON p.id = i.piece_id
		WHERE p.id IS NULL
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count dangling items: %w", err)
	}
	return n, nil
}
