package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/meta"
	"github.com/franz/repertoire/internal/setlist"
)

// SummaryReport represents a complete summary report
type SummaryReport struct {
	GeneratedAt time.Time

	// Catalog statistics
	Pieces   int
	Setlists int
	Items    int

	Readiness []ReadinessCount
	Composers []NameCount
	Genres    []NameCount

	// Details
	SetlistSummaries []SetlistSummary
	Dangling         []DanglingRef

	// Metadata
	PiecesPath   string
	SetlistsPath string
	EventLogPath string
}

// ReadinessCount is the number of pieces at one readiness level
type ReadinessCount struct {
	Readiness catalog.Readiness
	Count     int
}

// NameCount is the number of pieces sharing a composer or genre
type NameCount struct {
	Name  string
	Count int
}

// SetlistSummary describes one setlist
type SetlistSummary struct {
	DisplayID int
	Title     string
	Date      string
	Location  string
	Pieces    int

	// NotReady lists titles below performance-ready, in setlist order
	NotReady []string
}

// DanglingRef is a setlist item whose piece was deleted
type DanglingRef struct {
	SetlistTitle string
	Order        int
	PieceID      int
}

// GenerateSummaryReport builds a summary of the catalog
func GenerateSummaryReport(cat *catalog.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:      time.Now(),
		EventLogPath:     eventLogPath,
		SetlistSummaries: make([]SetlistSummary, 0),
		Dangling:         make([]DanglingRef, 0),
	}

	pieces := cat.Pieces()
	report.Pieces = len(pieces)

	for _, level := range catalog.ReadinessLevels {
		report.Readiness = append(report.Readiness, ReadinessCount{
			Readiness: level,
			Count:     len(cat.PiecesByReadiness(level)),
		})
	}

	report.Composers = topCounts(pieces, func(p *catalog.Piece) string { return p.Composer }, 10)
	report.Genres = topCounts(pieces, func(p *catalog.Piece) string { return p.Genre }, 10)

	mgr := setlist.NewManager(cat)
	for _, sl := range cat.Setlists() {
		summary := SetlistSummary{
			DisplayID: sl.DisplayID,
			Title:     sl.Title,
			Date:      sl.Date,
			Location:  sl.Location,
			NotReady:  make([]string, 0),
		}

		for entry := range mgr.ListFor(sl.ID).All() {
			summary.Pieces++
			if entry.Piece == nil {
				report.Dangling = append(report.Dangling, DanglingRef{
					SetlistTitle: sl.Title,
					Order:        entry.Item.Order,
					PieceID:      entry.Item.PieceID,
				})
				continue
			}
			if entry.Piece.Readiness != catalog.ReadinessPerformanceReady {
				summary.NotReady = append(summary.NotReady, entry.Piece.Title)
			}
		}

		report.Items += summary.Pieces
		report.SetlistSummaries = append(report.SetlistSummaries, summary)
	}
	report.Setlists = len(report.SetlistSummaries)

	return report, nil
}

// topCounts groups pieces by a case-insensitive key and returns the most
// common values, keeping the first spelling seen
func topCounts(pieces []*catalog.Piece, key func(*catalog.Piece) string, limit int) []NameCount {
	index := make(map[string]int)
	counts := make([]NameCount, 0)

	for _, p := range pieces {
		name := key(p)
		if name == "" {
			continue
		}
		folded := meta.Fold(name)
		if i, ok := index[folded]; ok {
			counts[i].Count++
			continue
		}
		index[folded] = len(counts)
		counts = append(counts, NameCount{Name: name, Count: 1})
	}

	// Sort by count (descending), ties keep first-seen order
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}

	return counts
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Repertoire - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.PiecesPath != "" {
		md.WriteString(fmt.Sprintf("**Pieces:** `%s`\n\n", report.PiecesPath))
	}
	if report.SetlistsPath != "" {
		md.WriteString(fmt.Sprintf("**Setlists:** `%s`\n\n", report.SetlistsPath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Pieces | %s |\n", humanize.Comma(int64(report.Pieces))))
	md.WriteString(fmt.Sprintf("| Setlists | %s |\n", humanize.Comma(int64(report.Setlists))))
	md.WriteString(fmt.Sprintf("| Setlist Entries | %s |\n", humanize.Comma(int64(report.Items))))
	if len(report.Dangling) > 0 {
		md.WriteString(fmt.Sprintf("| Missing Pieces | %d |\n", len(report.Dangling)))
	}
	md.WriteString("\n")

	// Readiness
	if report.Pieces > 0 {
		md.WriteString("## 🎯 Readiness\n\n")
		md.WriteString("| Status | Pieces | Share |\n")
		md.WriteString("|--------|--------|-------|\n")
		for _, rc := range report.Readiness {
			share := float64(rc.Count) * 100 / float64(report.Pieces)
			md.WriteString(fmt.Sprintf("| %s | %d | %.0f%% |\n", rc.Readiness, rc.Count, share))
		}
		md.WriteString("\n")
	}

	// Composers and genres
	if len(report.Composers) > 0 {
		md.WriteString("## 🎼 Top Composers\n\n")
		writeCounts(&md, "Composer", report.Composers)
	}
	if len(report.Genres) > 0 {
		md.WriteString("## 🏷️ Top Genres\n\n")
		writeCounts(&md, "Genre", report.Genres)
	}

	// Setlists
	if len(report.SetlistSummaries) > 0 {
		md.WriteString("## 📋 Setlists\n\n")

		for _, s := range report.SetlistSummaries {
			md.WriteString(fmt.Sprintf("### %d. %s\n\n", s.DisplayID, s.Title))
			if s.Date != "" {
				md.WriteString(fmt.Sprintf("- **Date:** %s\n", s.Date))
			}
			if s.Location != "" {
				md.WriteString(fmt.Sprintf("- **Location:** %s\n", s.Location))
			}
			if s.Pieces == 0 {
				md.WriteString(fmt.Sprintf("- %s\n\n", setlist.NoPiecesYet))
				continue
			}
			md.WriteString(fmt.Sprintf("- **Pieces:** %d\n", s.Pieces))
			if len(s.NotReady) == 0 {
				md.WriteString("- ✅ Every piece is performance-ready\n")
			} else {
				md.WriteString(fmt.Sprintf("- ⚠️ **Needs work:** %s\n", strings.Join(s.NotReady, ", ")))
			}
			md.WriteString("\n")
		}
	}

	// Dangling references
	if len(report.Dangling) > 0 {
		md.WriteString("## 🚨 Missing Pieces\n\n")
		md.WriteString("| Setlist | Position | Piece ID |\n")
		md.WriteString("|---------|----------|----------|\n")
		for _, d := range report.Dangling {
			md.WriteString(fmt.Sprintf("| %s | %d | %d |\n", truncate(d.SetlistTitle, 40), d.Order, d.PieceID))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by [rpr](https://github.com/franz/repertoire) - Repertoire Manager*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func writeCounts(md *strings.Builder, label string, counts []NameCount) {
	md.WriteString(fmt.Sprintf("| %s | Pieces |\n", label))
	md.WriteString("|--------|--------|\n")
	for _, c := range counts {
		md.WriteString(fmt.Sprintf("| %s | %d |\n", c.Name, c.Count))
	}
	md.WriteString("\n")
}

// truncate shortens s to maxLen runes, keeping start and end
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	start := maxLen/2 - 2
	end := len(runes) - (maxLen/2 - 2)
	return string(runes[:start]) + "..." + string(runes[end:])
}
