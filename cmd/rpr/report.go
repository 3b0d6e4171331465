package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/repertoire/internal/report"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Markdown summary of the repertoire",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Piece, setlist and entry counts
- Readiness breakdown
- Most frequent composers and genres
- Every setlist with the pieces that still need work
- Setlist entries whose piece was deleted

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	Args: cobra.NoArgs,
	RunE: withSession(runReport),
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
}

func runReport(s *session, cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Generating Summary Report ===")

	summaryReport, err := report.GenerateSummaryReport(s.cat, s.events.Path())
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	paths := s.codec.Paths()
	summaryReport.PiecesPath = paths.Pieces
	summaryReport.SetlistsPath = paths.Setlists

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join("artifacts", "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summaryReport, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Pieces:   %d", summaryReport.Pieces)
	util.InfoLog("Setlists: %d (%d entries)", summaryReport.Setlists, summaryReport.Items)
	if n := len(summaryReport.Dangling); n > 0 {
		util.WarnLog("Missing pieces: %d", n)
	}
	s.printf("%s\n", outputPath)

	return nil
}
