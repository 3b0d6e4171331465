package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/franz/repertoire/internal/util"
)

var fixedNow = time.Date(2026, 3, 10, 19, 30, 15, 500, time.UTC)

func newTestStore() *Store {
	s := New()
	s.SetClock(func() time.Time { return fixedNow })
	return s
}

func mustAddPiece(t *testing.T, s *Store, title, composer string) *Piece {
	t.Helper()
	p, err := s.AddPiece(PieceFields{Title: title, Composer: composer})
	if err != nil {
		t.Fatalf("AddPiece(%q) failed: %v", title, err)
	}
	return p
}

func TestAddPieceAssignsIDsAndStamp(t *testing.T) {
	s := newTestStore()

	p1 := mustAddPiece(t, s, "Nocturne", "Chopin")
	p2 := mustAddPiece(t, s, "Take Five", "Brubeck")

	if p1.ID != 1 || p2.ID != 2 {
		t.Errorf("expected internal ids 1 and 2, got %d and %d", p1.ID, p2.ID)
	}
	if p1.DisplayID != 1 || p2.DisplayID != 2 {
		t.Errorf("expected display ids 1 and 2, got %d and %d", p1.DisplayID, p2.DisplayID)
	}
	if p1.Readiness != ReadinessLearning {
		t.Errorf("expected default readiness learning, got %q", p1.Readiness)
	}
	if p1.CreatedAt == nil || !p1.CreatedAt.Equal(fixedNow.Truncate(time.Second)) {
		t.Errorf("expected created stamp %v, got %v", fixedNow.Truncate(time.Second), p1.CreatedAt)
	}
	if p1.UpdatedAt != nil {
		t.Errorf("expected no updated stamp on add, got %v", p1.UpdatedAt)
	}
}

func TestAddPieceRequiresTitle(t *testing.T) {
	s := newTestStore()

	if _, err := s.AddPiece(PieceFields{Title: "   "}); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
	if len(s.Pieces()) != 0 {
		t.Error("expected no piece to be stored")
	}
}

func TestDisplayIDReusesSmallestGap(t *testing.T) {
	s := newTestStore()

	p1 := mustAddPiece(t, s, "First", "")
	mustAddPiece(t, s, "Second", "")

	if err := s.DeletePiece(p1.ID); err != nil {
		t.Fatalf("DeletePiece failed: %v", err)
	}

	p3 := mustAddPiece(t, s, "Third", "")
	if p3.DisplayID != 1 {
		t.Errorf("expected new piece to take display id 1, got %d", p3.DisplayID)
	}
	if p3.ID != 3 {
		t.Errorf("expected internal id 3, got %d", p3.ID)
	}
}

func TestDeleteDoesNotReindexDisplayIDs(t *testing.T) {
	s := newTestStore()

	p1 := mustAddPiece(t, s, "A", "")
	p2 := mustAddPiece(t, s, "B", "")
	p3 := mustAddPiece(t, s, "C", "")

	if err := s.DeletePiece(p2.ID); err != nil {
		t.Fatal(err)
	}

	if p1.DisplayID != 1 || p3.DisplayID != 3 {
		t.Errorf("expected display ids to stay 1 and 3, got %d and %d", p1.DisplayID, p3.DisplayID)
	}
}

func TestInternalIDNeverReused(t *testing.T) {
	s := newTestStore()

	mustAddPiece(t, s, "A", "")
	newest := mustAddPiece(t, s, "B", "")

	if err := s.DeletePiece(newest.ID); err != nil {
		t.Fatal(err)
	}

	if got := s.NextInternalID(KindPiece); got != 3 {
		t.Errorf("expected next internal id 3 after deleting the newest piece, got %d", got)
	}
}

func TestNextInternalIDAfterPut(t *testing.T) {
	s := newTestStore()

	if err := s.PutPiece(&Piece{ID: 41, DisplayID: 1, Title: "Loaded"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutPiece(&Piece{ID: 7, DisplayID: 2, Title: "Older"}); err != nil {
		t.Fatal(err)
	}

	if got := s.NextInternalID(KindPiece); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := s.NextInternalID(KindSetlist); got != 1 {
		t.Errorf("expected setlist counter to start at 1, got %d", got)
	}
}

func TestPutRejectsDuplicateID(t *testing.T) {
	s := newTestStore()

	if err := s.PutSetlist(&Setlist{ID: 5, Title: "Recital"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutSetlist(&Setlist{ID: 5, Title: "Other"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestEditPieceKeepsBlankFields(t *testing.T) {
	s := newTestStore()
	p := mustAddPiece(t, s, "Old Title", "Old Composer")

	updated, err := s.EditPiece(p.ID, PieceFields{Title: "New Title", Readiness: "Performance Ready"})
	if err != nil {
		t.Fatalf("EditPiece failed: %v", err)
	}

	if updated != p {
		t.Error("expected edit to mutate the piece in place")
	}
	if p.Title != "New Title" {
		t.Errorf("expected title to change, got %q", p.Title)
	}
	if p.Composer != "Old Composer" {
		t.Errorf("expected blank composer to keep current value, got %q", p.Composer)
	}
	if p.Readiness != ReadinessPerformanceReady {
		t.Errorf("expected performance-ready, got %q", p.Readiness)
	}
	if p.UpdatedAt == nil {
		t.Error("expected updated stamp")
	}

	if _, err := s.EditPiece(p.ID, PieceFields{Readiness: "nearly"}); err != nil {
		t.Fatal(err)
	}
	if p.Readiness != ReadinessPerformanceReady {
		t.Errorf("expected unknown readiness to keep current value, got %q", p.Readiness)
	}
}

func TestEditMissingPiece(t *testing.T) {
	s := newTestStore()

	if _, err := s.EditPiece(99, PieceFields{Title: "x"}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeletePiece(99); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSetlistCascadesItems(t *testing.T) {
	s := newTestStore()
	keep, _ := s.AddSetlist(SetlistFields{Title: "Keep"})
	drop, _ := s.AddSetlist(SetlistFields{Title: "Drop"})

	s.InsertItem(drop.ID, 1, 1)
	s.InsertItem(keep.ID, 1, 1)
	s.InsertItem(drop.ID, 2, 2)

	if err := s.DeleteSetlist(drop.ID); err != nil {
		t.Fatalf("DeleteSetlist failed: %v", err)
	}

	if n := s.ItemCount(drop.ID); n != 0 {
		t.Errorf("expected dropped setlist items removed, %d remain", n)
	}
	if n := s.ItemCount(keep.ID); n != 1 {
		t.Errorf("expected other setlist untouched, got %d items", n)
	}
	if s.Exists(KindSetlist, drop.ID) {
		t.Error("expected setlist to be gone")
	}
}

func TestDeletePieceLeavesDanglingItems(t *testing.T) {
	s := newTestStore()
	p := mustAddPiece(t, s, "Gone Soon", "")
	sl, _ := s.AddSetlist(SetlistFields{Title: "Show"})
	s.InsertItem(sl.ID, p.ID, 1)

	if err := s.DeletePiece(p.ID); err != nil {
		t.Fatal(err)
	}

	if n := s.ItemCount(sl.ID); n != 1 {
		t.Errorf("expected item to survive piece deletion, got %d", n)
	}
	if d := s.DanglingItems(); len(d) != 1 || d[0].PieceID != p.ID {
		t.Errorf("expected one dangling item for piece %d, got %+v", p.ID, d)
	}
}

func TestItemIDsAreMonotonic(t *testing.T) {
	s := newTestStore()

	a := s.InsertItem(1, 10, 1)
	b := s.InsertItem(1, 11, 2)
	s.RemoveItem(b.ID)
	c := s.InsertItem(2, 10, 1)

	if a.ID != 1 || b.ID != 2 || c.ID != 3 {
		t.Errorf("expected item ids 1,2,3, got %d,%d,%d", a.ID, b.ID, c.ID)
	}
}

func TestOrderedItemsIsStable(t *testing.T) {
	s := newTestStore()
	s.InsertItem(1, 30, 3)
	s.InsertItem(1, 10, 1)
	s.InsertItem(2, 99, 1)
	s.InsertItem(1, 20, 2)

	var got []int
	for _, it := range s.OrderedItems(1) {
		got = append(got, it.PieceID)
	}

	want := []int{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected piece %d, got %d", i+1, want[i], got[i])
		}
	}
}

func TestBackfillDisplayIDs(t *testing.T) {
	s := newTestStore()
	pieces := []*Piece{
		{ID: 1, DisplayID: 0, Title: "Missing"},
		{ID: 2, DisplayID: 1, Title: "Has one"},
		{ID: 3, DisplayID: 1, Title: "Collides"},
		{ID: 4, DisplayID: 4, Title: "Sparse"},
	}
	for _, p := range pieces {
		if err := s.PutPiece(p); err != nil {
			t.Fatal(err)
		}
	}

	if n := s.BackfillDisplayIDs(); n != 2 {
		t.Errorf("expected 2 display ids assigned, got %d", n)
	}

	want := map[int]int{1: 2, 2: 1, 3: 3, 4: 4}
	for _, p := range s.Pieces() {
		if p.DisplayID != want[p.ID] {
			t.Errorf("piece %d: expected display id %d, got %d", p.ID, want[p.ID], p.DisplayID)
		}
	}
}

func TestByDisplayID(t *testing.T) {
	s := newTestStore()
	if err := s.PutPiece(&Piece{ID: 10, DisplayID: 2, Title: "Ten"}); err != nil {
		t.Fatal(err)
	}

	if id, ok := s.ByDisplayID(KindPiece, 2); !ok || id != 10 {
		t.Errorf("expected display 2 -> internal 10, got %d, %v", id, ok)
	}
	if _, ok := s.ByDisplayID(KindPiece, 10); ok {
		t.Error("expected no piece with display id 10")
	}
	if _, ok := s.ByDisplayID(KindSetlist, 2); ok {
		t.Error("expected display ids to be scoped per kind")
	}
}

func TestFilters(t *testing.T) {
	s := newTestStore()
	s.AddPiece(PieceFields{Title: "Nocturne", Composer: "Chopin", Genre: "Classical", Readiness: "rehearsing"})
	s.AddPiece(PieceFields{Title: "Take Five", Composer: "Brubeck", Genre: "Jazz"})
	s.AddPiece(PieceFields{Title: "Ballade", Composer: "Frédéric Chopin", Genre: "classical"})

	if got := s.PiecesByReadiness(ReadinessRehearsing); len(got) != 1 || got[0].Title != "Nocturne" {
		t.Errorf("expected only Nocturne rehearsing, got %v", got)
	}
	if got := s.SearchPieces(SearchComposer, "CHOPIN"); len(got) != 2 {
		t.Errorf("expected 2 Chopin pieces, got %d", len(got))
	}
	if got := s.SearchPieces(SearchGenre, "jazz"); len(got) != 1 || got[0].Title != "Take Five" {
		t.Errorf("expected Take Five for jazz, got %v", got)
	}
}

func TestParseReadiness(t *testing.T) {
	tests := []struct {
		input    string
		expected Readiness
		ok       bool
	}{
		{"learning", ReadinessLearning, true},
		{"  Rehearsing ", ReadinessRehearsing, true},
		{"performance ready", ReadinessPerformanceReady, true},
		{"Performance_Ready", ReadinessPerformanceReady, true},
		{"ready", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseReadiness(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseReadiness(%q) = %q, %v; expected %q, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}
