// Package setlist maintains the ordered piece sequence of each setlist.
//
// Order indices of a setlist are always the contiguous range 1..n after any
// mutation completes. A piece appears at most once per setlist.
package setlist

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/util"
)

var (
	// ErrDuplicateItem is returned when the piece is already in the setlist
	ErrDuplicateItem = errors.New("piece is already in this setlist")

	// ErrPieceNotFound is returned when appending a piece that does not exist
	ErrPieceNotFound = errors.New("that piece does not exist")

	// ErrPositionNotFound is returned when no item sits at the given order
	ErrPositionNotFound = errors.New("no piece at that position")

	// ErrBoundaryReached is returned when moving the first item up or the
	// last item down
	ErrBoundaryReached = errors.New("piece is already at the edge of the setlist")
)

// NoPiecesYet is shown for a setlist without items
const NoPiecesYet = "(no pieces yet)"

// Direction is the way Move shifts an item
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up"/"u" and "down"/"d" in any case
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	}
	return Up, fmt.Errorf("direction %q (expected up or down): %w", s, util.ErrInvalidArgument)
}

// Manager applies ordered edits to setlist items in a catalog store
type Manager struct {
	store *catalog.Store
}

// NewManager creates a manager over store
func NewManager(store *catalog.Store) *Manager {
	return &Manager{store: store}
}

// Append adds a piece at the end of a setlist.
func (m *Manager) Append(setlistID, pieceID int) (*catalog.SetlistItem, error) {
	if _, ok := m.store.Setlist(setlistID); !ok {
		return nil, fmt.Errorf("setlist %d: %w", setlistID, util.ErrNotFound)
	}
	if _, ok := m.store.Piece(pieceID); !ok {
		return nil, fmt.Errorf("piece %d: %w", pieceID, ErrPieceNotFound)
	}

	items := m.store.Items(setlistID)
	for _, it := range items {
		if it.PieceID == pieceID {
			return nil, ErrDuplicateItem
		}
	}

	return m.store.InsertItem(setlistID, pieceID, len(items)+1), nil
}

// RemoveAt deletes the item at order and closes the gap. Nothing changes
// when no item holds that position.
func (m *Manager) RemoveAt(setlistID, order int) (*catalog.SetlistItem, error) {
	target := m.at(setlistID, order)
	if target == nil {
		return nil, fmt.Errorf("position %d: %w", order, ErrPositionNotFound)
	}

	removed := *target
	m.store.RemoveItem(target.ID)
	m.Renumber(setlistID)

	return &removed, nil
}

// Move swaps the item at order with its neighbour in direction dir.
func (m *Manager) Move(setlistID, order int, dir Direction) error {
	target := m.at(setlistID, order)
	if target == nil {
		return fmt.Errorf("position %d: %w", order, ErrPositionNotFound)
	}

	neighbourOrder := order - 1
	if dir == Down {
		neighbourOrder = order + 1
	}
	neighbour := m.at(setlistID, neighbourOrder)
	if neighbour == nil {
		return fmt.Errorf("move %s from %d: %w", dir, order, ErrBoundaryReached)
	}

	target.Order, neighbour.Order = neighbour.Order, target.Order
	m.Renumber(setlistID)

	return nil
}

// Renumber stable-sorts the items of a setlist by order and assigns 1..n.
// Running it twice changes nothing.
func (m *Manager) Renumber(setlistID int) {
	for i, it := range m.store.OrderedItems(setlistID) {
		it.Order = i + 1
	}
}

func (m *Manager) at(setlistID, order int) *catalog.SetlistItem {
	if order < 1 {
		return nil
	}
	for _, it := range m.store.Items(setlistID) {
		if it.Order == order {
			return it
		}
	}
	return nil
}

// Entry is one position of a setlist. Piece is nil when the item refers to
// a piece that has been deleted.
type Entry struct {
	Item  catalog.SetlistItem
	Piece *catalog.Piece
}

// Title returns the piece title, or a placeholder for a dangling item
func (e Entry) Title() string {
	if e.Piece == nil {
		return fmt.Sprintf("(missing piece %d)", e.Item.PieceID)
	}
	return e.Piece.Title
}

// Sequence is the ordered view of one setlist. It can be iterated any
// number of times; each pass reads the current store contents.
type Sequence struct {
	store     *catalog.Store
	setlistID int
}

// ListFor returns the ordered view of a setlist
func (m *Manager) ListFor(setlistID int) Sequence {
	return Sequence{store: m.store, setlistID: setlistID}
}

// All yields entries by ascending order index
func (s Sequence) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, it := range s.store.OrderedItems(s.setlistID) {
			p, ok := s.store.Piece(it.PieceID)
			if !ok {
				p = nil
			}
			if !yield(Entry{Item: *it, Piece: p}) {
				return
			}
		}
	}
}

// Len returns the number of items
func (s Sequence) Len() int {
	return s.store.ItemCount(s.setlistID)
}

// Empty reports whether the setlist has no items
func (s Sequence) Empty() bool {
	return s.Len() == 0
}
