package main

import (
	"errors"
	"fmt"

	"github.com/franz/repertoire/internal/codec"
	"github.com/franz/repertoire/internal/report"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert legacy library files into the current layout",
	Long: `Read data/piece_library.csv and data/setlist_library.csv below --from and
write them as the pieces and setlists files of --data-dir.

Legacy rows without display numbers get them assigned in file order. The
legacy files are never modified. Migration refuses to replace files that
already hold data unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("from", ".", "directory containing the legacy data/ folder")
	migrateCmd.Flags().Bool("force", false, "overwrite existing data files")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	force, _ := cmd.Flags().GetBool("force")

	events := openEventLog()
	defer events.Close()

	src := codec.LegacyPaths(from)
	dst := dataPaths()
	util.InfoLog("=== Migrating legacy data ===")
	util.InfoLog("From: %s, %s", src.Pieces, src.Setlists)
	util.InfoLog("To:   %s, %s", dst.Pieces, dst.Setlists)

	_, result, err := codec.Migrate(src, dst, codec.SaveOptions{Force: force}, events)
	if errors.Is(err, codec.ErrRefuseOverwrite) {
		return fmt.Errorf("%w (use --force to replace it)", err)
	}
	if err != nil {
		events.LogError(report.EventMigrate, src.Pieces, err)
		return fmt.Errorf("migration failed: %w", err)
	}

	if result.Backfilled > 0 {
		util.InfoLog("Assigned display numbers to %d entries", result.Backfilled)
	}
	if n := len(result.Skipped); n > 0 {
		util.WarnLog("Skipped %d malformed row(s), see the warnings above", n)
	}
	util.SuccessLog("Migrated %d pieces, %d setlists, %d entries", result.Pieces, result.Setlists, result.Items)
	return nil
}
