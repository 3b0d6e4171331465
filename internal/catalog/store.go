package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/franz/repertoire/internal/meta"
	"github.com/franz/repertoire/internal/util"
)

var (
	// ErrTitleRequired is returned when a piece is added without a title
	ErrTitleRequired = errors.New("title is required")

	// ErrDuplicateID is returned when a loaded entity reuses an internal id
	ErrDuplicateID = errors.New("duplicate internal id")
)

// Store owns the in-memory repertoire: pieces, setlists and setlist items.
// Collections keep insertion order. A Store is not safe for concurrent use.
type Store struct {
	pieces   []*Piece
	setlists []*Setlist
	items    []*SetlistItem

	// highest internal id ever held per kind, so deleting the newest
	// entity never makes its id available again
	highWater  map[Kind]int
	nextItemID int

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		highWater: make(map[Kind]int),
		now:       time.Now,
	}
}

// SetClock overrides the time source used for created/updated stamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) stamp() *time.Time {
	t := s.now().UTC().Truncate(time.Second)
	return &t
}

// NextInternalID returns the id the next entity of kind will receive:
// one past the largest id currently present or previously held.
func (s *Store) NextInternalID(kind Kind) int {
	max := s.highWater[kind]
	switch kind {
	case KindPiece:
		for _, p := range s.pieces {
			if p.ID > max {
				max = p.ID
			}
		}
	case KindSetlist:
		for _, sl := range s.setlists {
			if sl.ID > max {
				max = sl.ID
			}
		}
	}
	return max + 1
}

// NextDisplayID returns the smallest positive integer not used as a
// display id by a current entity of kind.
func (s *Store) NextDisplayID(kind Kind) int {
	used := make(map[int]struct{})
	switch kind {
	case KindPiece:
		for _, p := range s.pieces {
			if p.DisplayID > 0 {
				used[p.DisplayID] = struct{}{}
			}
		}
	case KindSetlist:
		for _, sl := range s.setlists {
			if sl.DisplayID > 0 {
				used[sl.DisplayID] = struct{}{}
			}
		}
	}

	next := 1
	for {
		if _, ok := used[next]; !ok {
			return next
		}
		next++
	}
}

// Exists reports whether an entity of kind with the given internal id exists
func (s *Store) Exists(kind Kind, id int) bool {
	switch kind {
	case KindPiece:
		_, ok := s.Piece(id)
		return ok
	case KindSetlist:
		_, ok := s.Setlist(id)
		return ok
	}
	return false
}

func (s *Store) noteID(kind Kind, id int) {
	if id > s.highWater[kind] {
		s.highWater[kind] = id
	}
}

// --- Pieces ---

// AddPiece creates a piece with a fresh internal id, display id and
// created stamp. Unknown or empty readiness becomes learning.
func (s *Store) AddPiece(f PieceFields) (*Piece, error) {
	title := meta.CleanField(f.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	readiness, ok := ParseReadiness(string(f.Readiness))
	if !ok {
		readiness = ReadinessLearning
	}

	p := &Piece{
		ID:        s.NextInternalID(KindPiece),
		DisplayID: s.NextDisplayID(KindPiece),
		Title:     title,
		Composer:  meta.CleanField(f.Composer),
		Genre:     meta.CleanField(f.Genre),
		Readiness: readiness,
		OwnerID:   f.OwnerID,
		CreatedAt: s.stamp(),
	}
	s.pieces = append(s.pieces, p)
	s.noteID(KindPiece, p.ID)

	return p, nil
}

// EditPiece updates a piece in place. Blank text fields and an unknown
// readiness keep their current values. The updated stamp is always set.
func (s *Store) EditPiece(id int, f PieceFields) (*Piece, error) {
	p, ok := s.Piece(id)
	if !ok {
		return nil, fmt.Errorf("piece %d: %w", id, util.ErrNotFound)
	}

	if v := meta.CleanField(f.Title); v != "" {
		p.Title = v
	}
	if v := meta.CleanField(f.Composer); v != "" {
		p.Composer = v
	}
	if v := meta.CleanField(f.Genre); v != "" {
		p.Genre = v
	}
	if r, ok := ParseReadiness(string(f.Readiness)); ok {
		p.Readiness = r
	}
	p.UpdatedAt = s.stamp()

	return p, nil
}

// DeletePiece removes a piece. Setlist items referencing it are left in
// place and surface as dangling references.
func (s *Store) DeletePiece(id int) error {
	for i, p := range s.pieces {
		if p.ID == id {
			s.pieces = append(s.pieces[:i], s.pieces[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("piece %d: %w", id, util.ErrNotFound)
}

// Piece looks up a piece by internal id
func (s *Store) Piece(id int) (*Piece, bool) {
	for _, p := range s.pieces {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Pieces returns all pieces in insertion order
func (s *Store) Pieces() []*Piece {
	out := make([]*Piece, len(s.pieces))
	copy(out, s.pieces)
	return out
}

// PiecesByReadiness returns pieces with the given readiness, in insertion order
func (s *Store) PiecesByReadiness(r Readiness) []*Piece {
	var out []*Piece
	for _, p := range s.pieces {
		if p.Readiness == r {
			out = append(out, p)
		}
	}
	return out
}

// SearchField selects the piece attribute used by SearchPieces
type SearchField string

const (
	SearchComposer SearchField = "composer"
	SearchGenre    SearchField = "genre"
)

// ParseSearchField accepts "composer" or "genre" in any case
func ParseSearchField(s string) (SearchField, bool) {
	switch SearchField(strings.ToLower(strings.TrimSpace(s))) {
	case SearchComposer:
		return SearchComposer, true
	case SearchGenre:
		return SearchGenre, true
	}
	return "", false
}

// SearchPieces returns pieces whose field contains query, ignoring case
func (s *Store) SearchPieces(field SearchField, query string) []*Piece {
	var out []*Piece
	for _, p := range s.pieces {
		value := p.Composer
		if field == SearchGenre {
			value = p.Genre
		}
		if meta.ContainsFold(value, query) {
			out = append(out, p)
		}
	}
	return out
}

// --- Setlists ---

// AddSetlist creates a setlist with a fresh internal id and display id
func (s *Store) AddSetlist(f SetlistFields) (*Setlist, error) {
	sl := &Setlist{
		ID:        s.NextInternalID(KindSetlist),
		DisplayID: s.NextDisplayID(KindSetlist),
		Title:     meta.CleanField(f.Title),
		Date:      meta.CleanField(f.Date),
		Location:  meta.CleanField(f.Location),
		OwnerID:   f.OwnerID,
	}
	s.setlists = append(s.setlists, sl)
	s.noteID(KindSetlist, sl.ID)

	return sl, nil
}

// EditSetlist updates a setlist in place; blank fields keep current values
func (s *Store) EditSetlist(id int, f SetlistFields) (*Setlist, error) {
	sl, ok := s.Setlist(id)
	if !ok {
		return nil, fmt.Errorf("setlist %d: %w", id, util.ErrNotFound)
	}

	if v := meta.CleanField(f.Title); v != "" {
		sl.Title = v
	}
	if v := meta.CleanField(f.Date); v != "" {
		sl.Date = v
	}
	if v := meta.CleanField(f.Location); v != "" {
		sl.Location = v
	}

	return sl, nil
}

// DeleteSetlist removes a setlist together with all of its items
func (s *Store) DeleteSetlist(id int) error {
	idx := -1
	for i, sl := range s.setlists {
		if sl.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("setlist %d: %w", id, util.ErrNotFound)
	}

	s.setlists = append(s.setlists[:idx], s.setlists[idx+1:]...)

	kept := s.items[:0]
	for _, it := range s.items {
		if it.SetlistID != id {
			kept = append(kept, it)
		}
	}
	clear(s.items[len(kept):])
	s.items = kept

	return nil
}

// Setlist looks up a setlist by internal id
func (s *Store) Setlist(id int) (*Setlist, bool) {
	for _, sl := range s.setlists {
		if sl.ID == id {
			return sl, true
		}
	}
	return nil, false
}

// Setlists returns all setlists in insertion order
func (s *Store) Setlists() []*Setlist {
	out := make([]*Setlist, len(s.setlists))
	copy(out, s.setlists)
	return out
}

// --- Lookup views ---

// Refs returns the lookup view of every entity of kind, in insertion order
func (s *Store) Refs(kind Kind) []Ref {
	var out []Ref
	switch kind {
	case KindPiece:
		out = make([]Ref, 0, len(s.pieces))
		for _, p := range s.pieces {
			out = append(out, p.ref())
		}
	case KindSetlist:
		out = make([]Ref, 0, len(s.setlists))
		for _, sl := range s.setlists {
			out = append(out, sl.ref())
		}
	}
	return out
}

// ByDisplayID maps a display id of kind to its internal id
func (s *Store) ByDisplayID(kind Kind, displayID int) (int, bool) {
	if displayID <= 0 {
		return 0, false
	}
	for _, r := range s.Refs(kind) {
		if r.DisplayID == displayID {
			return r.ID, true
		}
	}
	return 0, false
}

// --- Setlist items ---

// Items returns the items of one setlist in storage order
func (s *Store) Items(setlistID int) []*SetlistItem {
	var out []*SetlistItem
	for _, it := range s.items {
		if it.SetlistID == setlistID {
			out = append(out, it)
		}
	}
	return out
}

// OrderedItems returns the items of one setlist stable-sorted by order index
func (s *Store) OrderedItems(setlistID int) []*SetlistItem {
	out := s.Items(setlistID)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// ItemCount returns the number of items in one setlist
func (s *Store) ItemCount(setlistID int) int {
	n := 0
	for _, it := range s.items {
		if it.SetlistID == setlistID {
			n++
		}
	}
	return n
}

// InsertItem stores a new item with a fresh item id. It performs no
// ordering or duplicate checks; see the setlist package for those.
func (s *Store) InsertItem(setlistID, pieceID, order int) *SetlistItem {
	s.nextItemID++
	it := &SetlistItem{
		ID:        s.nextItemID,
		SetlistID: setlistID,
		PieceID:   pieceID,
		Order:     order,
	}
	s.items = append(s.items, it)
	return it
}

// RemoveItem deletes an item by item id
func (s *Store) RemoveItem(itemID int) bool {
	for i, it := range s.items {
		if it.ID == itemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// --- Load side ---

// PutPiece inserts a fully formed piece, keeping its ids. Used when
// rebuilding the store from disk.
func (s *Store) PutPiece(p *Piece) error {
	if _, ok := s.Piece(p.ID); ok {
		return fmt.Errorf("piece %d: %w", p.ID, ErrDuplicateID)
	}
	s.pieces = append(s.pieces, p)
	s.noteID(KindPiece, p.ID)
	return nil
}

// PutSetlist inserts a fully formed setlist, keeping its ids
func (s *Store) PutSetlist(sl *Setlist) error {
	if _, ok := s.Setlist(sl.ID); ok {
		return fmt.Errorf("setlist %d: %w", sl.ID, ErrDuplicateID)
	}
	s.setlists = append(s.setlists, sl)
	s.noteID(KindSetlist, sl.ID)
	return nil
}

// BackfillDisplayIDs assigns display ids to entities that lack one. A
// display id already taken by an earlier entity is treated as missing.
// It must run after every row is loaded so the minimal-unused scan sees
// the complete set. Returns the number of ids assigned.
func (s *Store) BackfillDisplayIDs() int {
	assigned := 0

	seen := make(map[int]bool)
	for _, p := range s.pieces {
		if p.DisplayID > 0 && seen[p.DisplayID] {
			p.DisplayID = 0
		}
		if p.DisplayID > 0 {
			seen[p.DisplayID] = true
		}
	}
	for _, p := range s.pieces {
		if p.DisplayID <= 0 {
			p.DisplayID = s.NextDisplayID(KindPiece)
			assigned++
		}
	}

	seen = make(map[int]bool)
	for _, sl := range s.setlists {
		if sl.DisplayID > 0 && seen[sl.DisplayID] {
			sl.DisplayID = 0
		}
		if sl.DisplayID > 0 {
			seen[sl.DisplayID] = true
		}
	}
	for _, sl := range s.setlists {
		if sl.DisplayID <= 0 {
			sl.DisplayID = s.NextDisplayID(KindSetlist)
			assigned++
		}
	}

	return assigned
}

// DanglingItems returns items whose piece no longer exists
func (s *Store) DanglingItems() []*SetlistItem {
	var out []*SetlistItem
	for _, it := range s.items {
		if _, ok := s.Piece(it.PieceID); !ok {
			out = append(out, it)
		}
	}
	return out
}
