package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/meta"
	"github.com/franz/repertoire/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var pieceCmd = &cobra.Command{
	Use:   "piece",
	Short: "Manage the piece library",
}

var pieceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all pieces",
	Args:  cobra.NoArgs,
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		pieces := s.cat.Pieces()
		if len(pieces) == 0 {
			s.printf("No pieces yet.\n")
			return nil
		}
		s.printf("%s\n", s.pieceTable(pieces))
		return nil
	}),
}

var pieceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a piece",
	Long: `Add a piece to the library.

Without --title on an interactive terminal every field is asked for.
An unknown readiness becomes "learning".`,
	Args: cobra.NoArgs,
	RunE: withSession(runPieceAdd),
}

var pieceEditCmd = &cobra.Command{
	Use:   "edit <ref>",
	Short: "Edit a piece",
	Long: `Edit a piece. Fields left blank keep their current value, and so
does an unknown readiness.

Without any field flag on an interactive terminal every field is asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runPieceEdit),
}

var pieceDeleteCmd = &cobra.Command{
	Use:   "delete <ref>",
	Short: "Delete a piece",
	Long: `Delete a piece. Setlist entries that point at it are kept and show up as
missing pieces until they are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(runPieceDelete),
}

var pieceFilterCmd = &cobra.Command{
	Use:   "filter <readiness>",
	Short: "List pieces with one readiness (learning, rehearsing, performance-ready)",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		r, ok := catalog.ParseReadiness(args[0])
		if !ok {
			return fmt.Errorf("readiness %q (expected %s): %w", args[0], readinessChoices(), util.ErrInvalidArgument)
		}
		pieces := s.cat.PiecesByReadiness(r)
		if len(pieces) == 0 {
			s.printf("No pieces are %s.\n", r)
			return nil
		}
		s.printf("%s\n", s.pieceTable(pieces))
		return nil
	}),
}

var pieceSearchCmd = &cobra.Command{
	Use:   "search composer|genre <query>",
	Short: "Search pieces by composer or genre, ignoring case",
	Args:  cobra.MinimumNArgs(2),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		field, ok := catalog.ParseSearchField(args[0])
		if !ok {
			return fmt.Errorf("search field %q (expected composer or genre): %w", args[0], util.ErrInvalidArgument)
		}
		query := strings.Join(args[1:], " ")
		pieces := s.cat.SearchPieces(field, query)
		if len(pieces) == 0 {
			s.printf("No pieces with %s matching %q.\n", field, query)
			return nil
		}
		s.printf("%s\n", s.pieceTable(pieces))
		return nil
	}),
}

var pieceImportCmd = &cobra.Command{
	Use:   "import <files or directories...>",
	Short: "Add pieces from the tags of audio files",
	Long: `Read title, composer and genre from audio file tags and add one piece per
file. Directories are walked recursively. Files whose title and composer
match an existing piece are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withSession(runPieceImport),
}

func init() {
	rootCmd.AddCommand(pieceCmd)
	pieceCmd.AddCommand(pieceListCmd, pieceAddCmd, pieceEditCmd, pieceDeleteCmd, pieceFilterCmd, pieceSearchCmd, pieceImportCmd)

	for _, c := range []*cobra.Command{pieceAddCmd, pieceEditCmd} {
		c.Flags().String("title", "", "piece title")
		c.Flags().String("composer", "", "composer")
		c.Flags().String("genre", "", "genre")
		c.Flags().String("readiness", "", "learning, rehearsing or performance-ready")
	}
	pieceAddCmd.Flags().Int("owner", 0, "owner id")
	pieceImportCmd.Flags().String("readiness", string(catalog.ReadinessLearning), "readiness for imported pieces")
}

func runPieceAdd(s *session, cmd *cobra.Command, args []string) error {
	f := pieceFieldsFromFlags(cmd)
	f.OwnerID, _ = cmd.Flags().GetInt("owner")

	if f.Title == "" && s.interactive {
		if err := s.askPieceFields(&f, nil); err != nil {
			return err
		}
	}
	warnUnknownReadiness(f.Readiness, "using learning")

	p, err := s.cat.AddPiece(f)
	if err != nil {
		return err
	}
	s.mutated("add", catalog.KindPiece, p.ID, p.Title)
	s.printf("Added piece %d: %s\n", p.DisplayID, p.Title)
	return nil
}

func runPieceEdit(s *session, cmd *cobra.Command, args []string) error {
	p, err := s.piece(args[0])
	if err != nil {
		return err
	}

	f := pieceFieldsFromFlags(cmd)
	if f == (catalog.PieceFields{}) {
		if !s.interactive {
			return fmt.Errorf("nothing to change (use --title, --composer, --genre or --readiness): %w", util.ErrInvalidArgument)
		}
		if err := s.askPieceFields(&f, p); err != nil {
			return err
		}
	}
	warnUnknownReadiness(f.Readiness, "keeping "+string(p.Readiness))

	p, err = s.cat.EditPiece(p.ID, f)
	if err != nil {
		return err
	}
	s.mutated("edit", catalog.KindPiece, p.ID, p.Title)
	s.printf("Updated piece %d: %s\n", p.DisplayID, p.Title)
	return nil
}

func runPieceDelete(s *session, cmd *cobra.Command, args []string) error {
	p, err := s.piece(args[0])
	if err != nil {
		return err
	}

	uses := 0
	for _, sl := range s.cat.Setlists() {
		for _, it := range s.cat.Items(sl.ID) {
			if it.PieceID == p.ID {
				uses++
			}
		}
	}

	if err := s.cat.DeletePiece(p.ID); err != nil {
		return err
	}
	s.mutated("delete", catalog.KindPiece, p.ID, p.Title)
	s.printf("Deleted piece %d: %s\n", p.DisplayID, p.Title)
	if uses > 0 {
		util.WarnLog("%q is still listed in %d setlist(s)", p.Title, uses)
	}
	return nil
}

func runPieceImport(s *session, cmd *cobra.Command, args []string) error {
	readinessFlag, _ := cmd.Flags().GetString("readiness")
	warnUnknownReadiness(catalog.Readiness(readinessFlag), "using learning")

	files, err := collectAudioFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		util.WarnLog("No audio files found")
		return nil
	}

	known := make(map[string]bool)
	for _, p := range s.cat.Pieces() {
		known[pieceKey(p.Title, p.Composer)] = true
	}

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	added, duplicates, failed := 0, 0, 0
	for _, path := range files {
		if bar != nil {
			bar.Add(1)
		}

		tags, err := meta.ReadTags(path)
		if err != nil {
			util.DebugLog("Skipping %s: %v", path, err)
			failed++
			continue
		}
		key := pieceKey(tags.Title, tags.Composer)
		if known[key] {
			duplicates++
			continue
		}

		p, err := s.cat.AddPiece(catalog.PieceFields{
			Title:     tags.Title,
			Composer:  tags.Composer,
			Genre:     tags.Genre,
			Readiness: catalog.Readiness(readinessFlag),
		})
		if err != nil {
			failed++
			continue
		}
		known[key] = true
		added++
		s.mutated("import", catalog.KindPiece, p.ID, path)
	}

	if bar != nil {
		bar.Finish()
	}

	s.printf("Imported %d piece(s) from %d file(s)\n", added, len(files))
	if duplicates > 0 {
		util.InfoLog("Skipped %d already in the library", duplicates)
	}
	if failed > 0 {
		util.WarnLog("Could not read tags from %d file(s) (use -v for details)", failed)
	}
	return nil
}

// collectAudioFiles expands directories into the audio files below them.
// Explicit file arguments are kept whatever their extension.
func collectAudioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := util.RetryableStat(arg, nil)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				util.WarnLog("Cannot read %s: %v", path, err)
				return nil
			}
			if !d.IsDir() && meta.IsAudioFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func pieceKey(title, composer string) string {
	return meta.Fold(title) + "\x00" + meta.Fold(composer)
}

func pieceFieldsFromFlags(cmd *cobra.Command) catalog.PieceFields {
	title, _ := cmd.Flags().GetString("title")
	composer, _ := cmd.Flags().GetString("composer")
	genre, _ := cmd.Flags().GetString("genre")
	readiness, _ := cmd.Flags().GetString("readiness")
	return catalog.PieceFields{
		Title:     title,
		Composer:  composer,
		Genre:     genre,
		Readiness: catalog.Readiness(readiness),
	}
}

// askPieceFields prompts for every piece field. current supplies the
// bracketed defaults when editing.
func (s *session) askPieceFields(f *catalog.PieceFields, current *catalog.Piece) error {
	if current == nil {
		current = &catalog.Piece{}
	}
	prompts := []struct {
		label   string
		current string
		dst     *string
	}{
		{"Title", current.Title, &f.Title},
		{"Composer", current.Composer, &f.Composer},
		{"Genre", current.Genre, &f.Genre},
	}
	for _, q := range prompts {
		v, err := s.ask(q.label, q.current)
		if err != nil {
			return err
		}
		*q.dst = v
	}

	v, err := s.ask("Readiness ("+readinessChoices()+")", string(current.Readiness))
	if err != nil {
		return err
	}
	f.Readiness = catalog.Readiness(v)
	return nil
}

func warnUnknownReadiness(r catalog.Readiness, fallback string) {
	if r == "" {
		return
	}
	if _, ok := catalog.ParseReadiness(string(r)); !ok {
		util.WarnLog("Unknown readiness %q, %s", r, fallback)
	}
}

func readinessChoices() string {
	names := make([]string, len(catalog.ReadinessLevels))
	for i, r := range catalog.ReadinessLevels {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func (s *session) pieceTable(pieces []*catalog.Piece) string {
	rows := make([][]string, 0, len(pieces))
	for _, p := range pieces {
		rows = append(rows, []string{
			strconv.Itoa(p.DisplayID),
			p.Title,
			p.Composer,
			p.Genre,
			string(p.Readiness),
		})
	}
	return renderTable(s.tableWidth(),
		[]string{"#", "Title", "Composer", "Genre", "Readiness"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
