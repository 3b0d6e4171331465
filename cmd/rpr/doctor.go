package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/codec"
	"github.com/franz/repertoire/internal/setlist"
	"github.com/franz/repertoire/internal/store"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the data files and environment",
	Long: `Run diagnostic checks to ensure rpr can operate correctly.

This command checks:
- SQLite version compatibility
- Data directory permissions
- Pieces and setlists files (readable, malformed rows, missing pieces)
- Disk space availability
- The SQLite export, when one exists, and whether it still matches the files

Nothing is created or modified.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("db", "", "SQLite export to check (default: the export --db setting)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== RPR Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. Check SQLite
	results = append(results, checkSQLite())

	// 2. Check data directory
	dataDir := GetConfigString("data-dir", ".")
	results = append(results, checkDataDirectory(dataDir))

	// 3. Check data files
	fileResults, cat := checkDataFiles(dataPaths())
	results = append(results, fileResults...)

	// 4. Check disk space
	results = append(results, checkDiskSpace(dataDir, "data"))

	// 5. Check snapshot database
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("db")
	}
	results = append(results, checkDatabase(dbPath))
	results = append(results, checkExportFreshness(dbPath, cat)...)

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running rpr.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed!")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is pure Go, so only the version is checked
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDataDirectory verifies the data directory is writable
func checkDataDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Data directory",
				warning: true,
				message: fmt.Sprintf("%s does not exist (will be created on first run)", path),
			}
		}
		return checkResult{
			name:    "Data directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Data directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	// Saves write a temp file next to the data and rename it
	f, err := os.CreateTemp(path, ".rpr_write_test-*")
	if err != nil {
		return checkResult{
			name:    "Data directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(f.Name())

	return checkResult{
		name:    "Data directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDataFiles loads both files without creating them and reports
// malformed rows and setlist entries whose piece is gone. The loaded
// catalog is returned for later checks; it is nil when nothing loaded.
func checkDataFiles(paths codec.Paths) ([]checkResult, *catalog.Store) {
	results := []checkResult{}

	missing := 0
	for _, f := range []struct {
		label string
		path  string
	}{
		{"Pieces file", paths.Pieces},
		{"Setlists file", paths.Setlists},
	} {
		info, err := os.Stat(f.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			missing++
			results = append(results, checkResult{
				name:    f.label,
				message: fmt.Sprintf("%s (will be created on first run)", f.path),
			})
		case err != nil:
			results = append(results, checkResult{
				name:    f.label,
				error:   true,
				message: fmt.Sprintf("cannot access %s: %v", f.path, err),
			})
		default:
			results = append(results, checkResult{
				name:    f.label,
				message: fmt.Sprintf("%s (%s)", f.path, util.FormatBytes(info.Size())),
			})
		}
	}
	if missing == 2 {
		return results, nil
	}

	cat, result, err := codec.New(paths, nil).Inspect()
	if err != nil {
		return append(results, checkResult{
			name:    "Catalog",
			error:   true,
			message: err.Error(),
		}), nil
	}

	results = append(results, checkResult{
		name:    "Catalog",
		message: fmt.Sprintf("%d pieces, %d setlists, %d entries", result.Pieces, result.Setlists, result.Items),
	})

	if n := len(result.Skipped); n > 0 {
		results = append(results, checkResult{
			name:    "Malformed rows",
			warning: true,
			message: fmt.Sprintf("%d row(s) are skipped on load, first at %s", n, result.Skipped[0].Error()),
		})
	}
	if result.Backfilled > 0 {
		results = append(results, checkResult{
			name:    "Display numbers",
			warning: true,
			message: fmt.Sprintf("%d entries have no display number (assigned on next save)", result.Backfilled),
		})
	}
	if n := len(cat.DanglingItems()); n > 0 {
		results = append(results, checkResult{
			name:    "Missing pieces",
			warning: true,
			message: fmt.Sprintf("%d setlist entries point at deleted pieces", n),
		})
	}

	return results, cat
}

// checkDatabase verifies the SQLite export, if there is one
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Export database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Export database",
				message: fmt.Sprintf("%s (not exported yet)", dbPath),
			}
		}
		return checkResult{
			name:    "Export database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Export database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Export database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Export database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	size := util.FormatBytes(info.Size())
	last, err := db.LastSnapshot()
	if err != nil || last == nil {
		return checkResult{
			name:    "Export database",
			warning: true,
			message: fmt.Sprintf("%s (%s, no completed export)", dbPath, size),
		}
	}

	return checkResult{
		name: "Export database",
		message: fmt.Sprintf("%s (%s, %d pieces, exported %s)",
			filepath.Base(dbPath), size, last.Pieces, last.ExportedAt.Local().Format("2006-01-02 15:04")),
	}
}

// checkExportFreshness compares the last export with the loaded catalog.
// Nothing is reported when there is no export or no catalog to compare.
func checkExportFreshness(dbPath string, cat *catalog.Store) []checkResult {
	if dbPath == "" || cat == nil {
		return nil
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil
	}
	defer db.Close()

	if last, err := db.LastSnapshot(); err != nil || last == nil {
		return nil
	}

	results := []checkResult{}

	drift, err := exportDrift(db, cat)
	switch {
	case err != nil:
		results = append(results, checkResult{
			name:    "Export freshness",
			error:   true,
			message: err.Error(),
		})
	case len(drift) > 0:
		results = append(results, checkResult{
			name:    "Export freshness",
			warning: true,
			message: fmt.Sprintf("export is stale (%s), run rpr export", strings.Join(drift, "; ")),
		})
	default:
		results = append(results, checkResult{
			name:    "Export freshness",
			message: "matches the data files",
		})
	}

	dangling, err := db.DanglingItemCount()
	if err == nil && dangling > 0 {
		results = append(results, checkResult{
			name:    "Export missing pieces",
			warning: true,
			message: fmt.Sprintf("%d exported setlist entries point at deleted pieces", dangling),
		})
	}

	return results
}

// exportDrift lists every way the export differs from cat: row counts,
// readiness totals and the piece order of each setlist
func exportDrift(db *store.Store, cat *catalog.Store) ([]string, error) {
	var drift []string

	items := 0
	for _, sl := range cat.Setlists() {
		items += cat.ItemCount(sl.ID)
	}

	for _, c := range []struct {
		label string
		count func() (int, error)
		want  int
	}{
		{"pieces", db.CountPieces, len(cat.Pieces())},
		{"setlists", db.CountSetlists, len(cat.Setlists())},
		{"entries", db.CountItems, items},
	} {
		got, err := c.count()
		if err != nil {
			return nil, err
		}
		if got != c.want {
			drift = append(drift, fmt.Sprintf("%d %s exported, %d in files", got, c.label, c.want))
		}
	}

	readiness, err := db.ReadinessCounts()
	if err != nil {
		return nil, err
	}
	for _, level := range catalog.ReadinessLevels {
		got, want := readiness[string(level)], len(cat.PiecesByReadiness(level))
		if got != want {
			drift = append(drift, fmt.Sprintf("%d %s exported, %d in files", got, level, want))
		}
	}

	mgr := setlist.NewManager(cat)
	for _, sl := range cat.Setlists() {
		var want []string
		for entry := range mgr.ListFor(sl.ID).All() {
			title := ""
			if entry.Piece != nil {
				title = entry.Piece.Title
			}
			want = append(want, title)
		}
		got, err := db.SetlistPieceTitles(sl.ID)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(got, want) {
			drift = append(drift, fmt.Sprintf("setlist %q order differs", sl.Title))
		}
	}

	return drift, nil
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// The data files are small; only a nearly full disk matters
	warning := false
	warningMsg := ""
	if availBytes < 100*1024*1024 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 98 {
		warning = true
		warningMsg = " (>98% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", util.FormatBytes(int64(availBytes)), warningMsg),
	}
}
