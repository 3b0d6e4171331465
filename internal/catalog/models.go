package catalog

import (
	"strings"
	"time"
)

// Kind selects one of the two canonical collections
type Kind int

const (
	KindPiece Kind = iota
	KindSetlist
)

func (k Kind) String() string {
	switch k {
	case KindPiece:
		return "piece"
	case KindSetlist:
		return "setlist"
	default:
		return "unknown"
	}
}

// Readiness is the closed vocabulary for how far along a piece is
type Readiness string

const (
	ReadinessLearning         Readiness = "learning"
	ReadinessRehearsing       Readiness = "rehearsing"
	ReadinessPerformanceReady Readiness = "performance-ready"
)

// ReadinessLevels lists every valid readiness value in display order
var ReadinessLevels = []Readiness{
	ReadinessLearning,
	ReadinessRehearsing,
	ReadinessPerformanceReady,
}

// ParseReadiness normalizes free-form input ("Performance Ready",
// "performance_ready") and reports whether it names a known level.
func ParseReadiness(s string) (Readiness, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "-", "_", "-").Replace(v)
	for _, r := range ReadinessLevels {
		if string(r) == v {
			return r, true
		}
	}
	return "", false
}

// Piece is a single work in the repertoire.
//
// DisplayID is the short number users type. Zero means "not yet assigned";
// the store assigns one on add and the codec backfills it once after load.
type Piece struct {
	ID        int
	DisplayID int
	Title     string
	Composer  string
	Genre     string
	Readiness Readiness
	OwnerID   int
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Setlist is an ordered performance program
type Setlist struct {
	ID        int
	DisplayID int
	Title     string
	Date      string // free text, never parsed
	Location  string
	OwnerID   int
}

// SetlistItem places one piece at one position of one setlist.
// PieceID may dangle after the piece is deleted.
type SetlistItem struct {
	ID        int
	SetlistID int
	PieceID   int
	Order     int
}

// PieceFields carries user-supplied values for add and edit
type PieceFields struct {
	Title     string
	Composer  string
	Genre     string
	Readiness Readiness
	OwnerID   int
}

// SetlistFields carries user-supplied values for add and edit
type SetlistFields struct {
	Title    string
	Date     string
	Location string
	OwnerID  int
}

// Ref is the lookup view of an entity used for reference resolution.
// Detail is a secondary descriptive field shown when disambiguating.
type Ref struct {
	Kind      Kind
	ID        int
	DisplayID int
	Name      string
	Detail    string
}

func (p *Piece) ref() Ref {
	return Ref{Kind: KindPiece, ID: p.ID, DisplayID: p.DisplayID, Name: p.Title, Detail: p.Composer}
}

func (s *Setlist) ref() Ref {
	return Ref{Kind: KindSetlist, ID: s.ID, DisplayID: s.DisplayID, Name: s.Title, Detail: s.Date}
}
