package main

import (
	"fmt"
	"os"
	"time"

	"github.com/franz/repertoire/internal/report"
	"github.com/franz/repertoire/internal/store"
	"github.com/franz/repertoire/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Mirror the catalog into a SQLite database",
	Long: `Write the whole catalog into a SQLite database for ad-hoc queries.

The database is a read-only copy: every export replaces its contents and
rpr never reads it back. The CSV files stay the source of truth.`,
	Args: cobra.NoArgs,
	RunE: withSession(runExport),
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("db", "repertoire.db", "SQLite database file")
	exportCmd.Flags().Bool("network-optimized", false, "tune SQLite for databases on network shares")
	viper.BindPFlag("db", exportCmd.Flags().Lookup("db"))
}

func runExport(s *session, cmd *cobra.Command, args []string) error {
	dbPath := GetConfigString("db", "repertoire.db")
	networkOptimized, _ := cmd.Flags().GetBool("network-optimized")

	db, err := store.OpenWithOptions(dbPath, &store.OpenOptions{NetworkOptimized: networkOptimized})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	total := store.SnapshotRows(s.cat)
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Exporting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	start := time.Now()
	snap, err := db.WriteSnapshot(s.cat, func() {
		if bar != nil {
			bar.Add(1)
		}
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		s.events.LogError(report.EventExport, dbPath, err)
		return fmt.Errorf("export failed: %w", err)
	}
	duration := time.Since(start)
	s.events.LogExport(dbPath, snap.Rows(), duration)

	util.SuccessLog("Exported %d pieces, %d setlists and %d entries to %s in %v",
		snap.Pieces, snap.Setlists, snap.Items, dbPath, duration.Round(time.Millisecond))
	return nil
}
