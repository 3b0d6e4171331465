package codec

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/util"
)

// recordingSink counts events by method
type recordingSink struct {
	loads, skips, saves, refusals, migrations int
}

func (s *recordingSink) LogLoad(string, string, int, int) error {
	s.loads++
	return nil
}

func (s *recordingSink) LogSkip(string, int, string) error {
	s.skips++
	return nil
}

func (s *recordingSink) LogSave(string, string, int) error {
	s.saves++
	return nil
}

func (s *recordingSink) LogRefuse(string, string, int) error {
	s.refusals++
	return nil
}

func (s *recordingSink) LogMigrate(string, string, int, int) error {
	s.migrations++
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestLoadMissingFilesCreatesHeaders(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(filepath.Join(dir, "nested"))

	store, result, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(store.Pieces()) != 0 || len(store.Setlists()) != 0 {
		t.Error("expected empty store")
	}
	if len(result.Created) != 2 {
		t.Errorf("expected 2 created files, got %v", result.Created)
	}

	expected := strings.Join(PieceHeader, ",") + "\n"
	if got := readFile(t, paths.Pieces); got != expected {
		t.Errorf("expected header-only pieces file %q, got %q", expected, got)
	}
	expected = strings.Join(SetlistHeader, ",") + "\n"
	if got := readFile(t, paths.Setlists); got != expected {
		t.Errorf("expected header-only setlists file %q, got %q", expected, got)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	c := New(paths, nil)

	src := catalog.New()
	fixed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	src.SetClock(func() time.Time { return fixed })

	a, _ := src.AddPiece(catalog.PieceFields{Title: "Clair de Lune", Composer: "Debussy", Genre: "Classical", Readiness: catalog.ReadinessRehearsing, OwnerID: 3})
	b, _ := src.AddPiece(catalog.PieceFields{Title: "Take Five, Live", Composer: "Brubeck", Genre: "Jazz"})
	if _, err := src.EditPiece(b.ID, catalog.PieceFields{Readiness: catalog.ReadinessPerformanceReady}); err != nil {
		t.Fatal(err)
	}
	sl, _ := src.AddSetlist(catalog.SetlistFields{Title: "Spring", Date: "March 10", Location: "Hall \"A\""})
	src.InsertItem(sl.ID, b.ID, 1)
	src.InsertItem(sl.ID, a.ID, 2)
	empty, _ := src.AddSetlist(catalog.SetlistFields{Title: "Empty"})

	if err := c.Save(src, SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, result, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("expected no skipped rows, got %v", result.Skipped)
	}
	if result.Pieces != 2 || result.Setlists != 2 || result.Items != 2 {
		t.Errorf("unexpected counts %+v", result)
	}

	for _, want := range src.Pieces() {
		p, ok := got.Piece(want.ID)
		if !ok {
			t.Fatalf("piece %d missing after round trip", want.ID)
		}
		if p.DisplayID != want.DisplayID || p.Title != want.Title || p.Composer != want.Composer ||
			p.Genre != want.Genre || p.Readiness != want.Readiness || p.OwnerID != want.OwnerID {
			t.Errorf("piece %d: expected %+v, got %+v", want.ID, want, p)
		}
		if p.CreatedAt == nil || !p.CreatedAt.Equal(fixed) {
			t.Errorf("piece %d: created stamp lost: %v", want.ID, p.CreatedAt)
		}
	}
	if p, _ := got.Piece(a.ID); p.UpdatedAt != nil {
		t.Errorf("expected unset updated stamp to stay unset, got %v", p.UpdatedAt)
	}
	if p, _ := got.Piece(b.ID); p.UpdatedAt == nil {
		t.Error("expected updated stamp to survive")
	}

	gotSl, ok := got.Setlist(sl.ID)
	if !ok || gotSl.Location != `Hall "A"` || gotSl.Date != "March 10" {
		t.Errorf("setlist fields not preserved: %+v", gotSl)
	}
	var order []int
	for _, it := range got.OrderedItems(sl.ID) {
		order = append(order, it.PieceID)
	}
	if !slices.Equal(order, []int{b.ID, a.ID}) {
		t.Errorf("expected piece order %v, got %v", []int{b.ID, a.ID}, order)
	}
	if got.ItemCount(empty.ID) != 0 {
		t.Errorf("expected empty setlist to stay empty")
	}
}

func TestLoadSemicolonFile(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, "piece_id;simple_id;title;composer;genre;readiness_status;user_id;created;updated\n"+
		"1;1;Gymnopédie, No. 1;Satie;Classical;learning;0;;\n")
	writeFile(t, paths.Setlists, strings.Join(SetlistHeader, ",")+"\n")

	store, result, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped rows: %v", result.Skipped)
	}
	p, ok := store.Piece(1)
	if !ok {
		t.Fatal("expected piece 1")
	}
	if p.Title != "Gymnopédie, No. 1" || p.Composer != "Satie" {
		t.Errorf("unexpected piece %+v", p)
	}
}

func TestLoadSemicolonSetlistKeepsPieceList(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, strings.Join(PieceHeader, ",")+"\n")
	writeFile(t, paths.Setlists, "id;simple_id;title;date;location;user_id;piece_ids\n"+
		"4;1;Gala;June;Town hall;0;7;3;5\n")

	store, result, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped rows: %v", result.Skipped)
	}
	sl, ok := store.Setlist(4)
	if !ok || sl.Location != "Town hall" {
		t.Fatalf("unexpected setlist %+v", sl)
	}
	var order []int
	for _, it := range store.OrderedItems(4) {
		order = append(order, it.PieceID)
	}
	if !slices.Equal(order, []int{7, 3, 5}) {
		t.Errorf("expected piece order [7 3 5], got %v", order)
	}
}

func TestLoadBOMAndInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, "\xEF\xBB\xBFpiece_id,title\n1,Caf\xE9\n")

	store, _, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p, ok := store.Piece(1)
	if !ok {
		t.Fatal("expected BOM-prefixed piece_id header to be recognized")
	}
	if p.Title != "Caf\uFFFD" {
		t.Errorf("expected invalid byte replaced, got %q", p.Title)
	}
}

func TestLoadLegacyWithoutDisplayIDs(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, "piece_id,title,composer,genre,readiness_status,user_id\n"+
		"5,Prelude,Bach,Baroque,Rehearsing,1\n"+
		"2,Étude,Chopin,Romantic,warming up,1\n"+
		"9,Rondo,Mozart,Classical,performance_ready,1\n")
	writeFile(t, paths.Setlists, "id,title,date,location,user_id,piece_ids\n"+
		"1,Recital,2026-05-01,Hall,1,9;5;9;x;2\n")

	store, result, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// display ids are assigned in row order
	for id, display := range map[int]int{5: 1, 2: 2, 9: 3} {
		p, _ := store.Piece(id)
		if p.DisplayID != display {
			t.Errorf("piece %d: expected display id %d, got %d", id, display, p.DisplayID)
		}
	}
	if result.Backfilled != 4 {
		t.Errorf("expected 4 backfilled display ids, got %d", result.Backfilled)
	}

	readiness := map[int]catalog.Readiness{5: catalog.ReadinessRehearsing, 2: catalog.ReadinessLearning, 9: catalog.ReadinessPerformanceReady}
	for id, want := range readiness {
		if p, _ := store.Piece(id); p.Readiness != want {
			t.Errorf("piece %d: expected readiness %s, got %s", id, want, p.Readiness)
		}
	}

	var order []int
	for _, it := range store.OrderedItems(1) {
		order = append(order, it.PieceID)
	}
	if !slices.Equal(order, []int{9, 5, 2}) {
		t.Errorf("expected repeated and invalid tokens dropped, got %v", order)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Line != 2 {
		t.Errorf("expected one row error on line 2 for token x, got %v", result.Skipped)
	}

	if next := store.NextInternalID(catalog.KindPiece); next != 10 {
		t.Errorf("expected next piece id 10, got %d", next)
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, strings.Join(PieceHeader, ",")+"\n"+
		"1,1,Good,,,learning,0,,\n"+
		",2,No id,,,learning,0,,\n"+
		"abc,3,Bad id,,,learning,0,,\n"+
		"0,4,Zero id,,,learning,0,,\n"+
		"1,5,Duplicate,,,learning,0,,\n"+
		"\n"+
		"2,1,Colliding display,,,learning,0,yesterday,\n")
	sink := &recordingSink{}

	store, result, err := New(paths, sink).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if result.Pieces != 2 {
		t.Errorf("expected 2 pieces, got %d", result.Pieces)
	}
	var lines []int
	for _, e := range result.Skipped {
		if !errors.Is(e, ErrMalformedRow) {
			t.Errorf("row error %v does not wrap ErrMalformedRow", e)
		}
		lines = append(lines, e.Line)
	}
	if !slices.Equal(lines, []int{3, 4, 5, 6, 8}) {
		t.Errorf("expected row errors on lines [3 4 5 6 8], got %v", lines)
	}
	if sink.skips != len(result.Skipped) || sink.loads != 2 {
		t.Errorf("unexpected sink counts %+v", sink)
	}

	p, ok := store.Piece(2)
	if !ok {
		t.Fatal("expected piece with bad timestamp to load")
	}
	if p.CreatedAt != nil {
		t.Errorf("expected unparseable created stamp to load as nil, got %v", p.CreatedAt)
	}
	if p.DisplayID != 2 {
		t.Errorf("expected colliding display id to be backfilled to 2, got %d", p.DisplayID)
	}
}

func TestLoadDateOnlyTimestamp(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, "piece_id,title,created\n1,A,2025-12-24\n")

	store, result, err := New(paths, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Skipped)
	}
	p, _ := store.Piece(1)
	if p.CreatedAt == nil || !p.CreatedAt.Equal(time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created stamp %v", p.CreatedAt)
	}
}

func TestSaveRefusesEmptyOverNonEmpty(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	original := strings.Join(PieceHeader, ",") + "\n" +
		"1,1,A,,,learning,0,,\n" +
		"2,2,B,,,learning,0,,\n"
	writeFile(t, paths.Pieces, original)
	sink := &recordingSink{}

	err := New(paths, sink).Save(catalog.New(), SaveOptions{})
	if !errors.Is(err, ErrRefuseOverwrite) {
		t.Fatalf("expected ErrRefuseOverwrite, got %v", err)
	}
	if got := readFile(t, paths.Pieces); got != original {
		t.Errorf("pieces file was modified:\n%s", got)
	}
	if sink.refusals != 1 {
		t.Errorf("expected one refusal event, got %d", sink.refusals)
	}

	// the setlists file held nothing, so it is still written
	if _, err := os.Stat(paths.Setlists); err != nil {
		t.Errorf("expected setlists file to be written: %v", err)
	}
}

func TestSaveForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	writeFile(t, paths.Pieces, strings.Join(PieceHeader, ",")+"\n1,1,A,,,learning,0,,\n")

	if err := New(paths, nil).Save(catalog.New(), SaveOptions{Force: true}); err != nil {
		t.Fatalf("forced Save failed: %v", err)
	}
	expected := strings.Join(PieceHeader, ",") + "\n"
	if got := readFile(t, paths.Pieces); got != expected {
		t.Errorf("expected header-only file, got %q", got)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	s := catalog.New()
	s.AddPiece(catalog.PieceFields{Title: "A"})

	if err := New(paths, nil).Save(s, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"pieces.csv", "setlists.csv"}) {
		t.Errorf("unexpected directory contents %v", names)
	}

	info, err := os.Stat(paths.Pieces)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestHighWaterSurvivesSave(t *testing.T) {
	dir := t.TempDir()
	paths := DefaultPaths(dir)
	c := New(paths, nil)

	s := catalog.New()
	s.AddPiece(catalog.PieceFields{Title: "A"})
	s.AddPiece(catalog.PieceFields{Title: "B"})
	if err := c.Save(s, SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	loaded, _, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if next := loaded.NextInternalID(catalog.KindPiece); next != 3 {
		t.Errorf("expected next id 3 after reload, got %d", next)
	}
}

func TestMigrateLegacy(t *testing.T) {
	dir := t.TempDir()
	from := LegacyPaths(dir)
	to := DefaultPaths(dir)
	writeFile(t, from.Pieces, "piece_id,title,composer,genre,readiness_status,user_id\n"+
		"1,Prelude,Bach,Baroque,learning,1\n")
	writeFile(t, from.Setlists, "id,title,date,location,user_id,piece_ids\n"+
		"1,Recital,2026-05-01,Hall,1,1\n")
	sink := &recordingSink{}

	store, result, err := Migrate(from, to, SaveOptions{}, sink)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if result.Pieces != 1 || result.Setlists != 1 || len(store.Pieces()) != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if sink.migrations != 1 {
		t.Errorf("expected one migrate event, got %d", sink.migrations)
	}

	content := readFile(t, to.Pieces)
	if !strings.HasPrefix(content, strings.Join(PieceHeader, ",")+"\n") {
		t.Errorf("expected canonical header, got %q", content)
	}
	if !strings.Contains(content, "1,1,Prelude,Bach,Baroque,learning,1,,") {
		t.Errorf("expected migrated row with display id, got %q", content)
	}

	// a second run refuses because the target now holds data
	if _, _, err := Migrate(from, to, SaveOptions{}, nil); !errors.Is(err, ErrRefuseOverwrite) {
		t.Errorf("expected ErrRefuseOverwrite on second run, got %v", err)
	}
	if _, _, err := Migrate(from, to, SaveOptions{Force: true}, nil); err != nil {
		t.Errorf("forced migrate failed: %v", err)
	}
}

func TestMigrateMissingSource(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Migrate(LegacyPaths(dir), DefaultPaths(dir), SaveOptions{}, nil)
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected missing legacy directory to stay missing")
	}
}

func TestRowErrorFormat(t *testing.T) {
	e := &RowError{Path: "pieces.csv", Line: 4, Reason: "invalid piece id \"x\""}
	if e.Error() != `pieces.csv:4: invalid piece id "x"` {
		t.Errorf("unexpected message %q", e.Error())
	}
	var target *RowError
	if !errors.As(error(e), &target) || !errors.Is(e, ErrMalformedRow) {
		t.Error("RowError should match both errors.As and errors.Is")
	}
}
