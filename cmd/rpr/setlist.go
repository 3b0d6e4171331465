package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/setlist"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
)

var setlistCmd = &cobra.Command{
	Use:     "setlist",
	Aliases: []string{"performance"},
	Short:   "Manage setlists and the order of their pieces",
}

var setlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all setlists",
	Args:  cobra.NoArgs,
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		setlists := s.cat.Setlists()
		if len(setlists) == 0 {
			s.printf("No setlists yet.\n")
			return nil
		}

		rows := make([][]string, 0, len(setlists))
		for _, sl := range setlists {
			rows = append(rows, []string{
				strconv.Itoa(sl.DisplayID),
				sl.Title,
				sl.Date,
				sl.Location,
				strconv.Itoa(s.cat.ItemCount(sl.ID)),
			})
		}
		s.printf("%s\n", renderTable(s.tableWidth(),
			[]string{"#", "Title", "Date", "Location", "Pieces"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
		return nil
	}),
}

var setlistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a setlist",
	Long: `Add a setlist. The date is free text.

Without --title on an interactive terminal every field is asked for.`,
	Args: cobra.NoArgs,
	RunE: withSession(runSetlistAdd),
}

var setlistEditCmd = &cobra.Command{
	Use:   "edit <ref>",
	Short: "Edit a setlist's title, date or location",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runSetlistEdit),
}

var setlistViewCmd = &cobra.Command{
	Use:   "view <ref>",
	Short: "Show the pieces of a setlist in order",
	Args:  cobra.ExactArgs(1),
	RunE:  withSession(runSetlistView),
}

var setlistDeleteCmd = &cobra.Command{
	Use:   "delete <ref>",
	Short: "Delete a setlist and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		sl, err := s.setlist(args[0])
		if err != nil {
			return err
		}
		entries := s.cat.ItemCount(sl.ID)
		if err := s.cat.DeleteSetlist(sl.ID); err != nil {
			return err
		}
		s.mutated("delete", catalog.KindSetlist, sl.ID, sl.Title)
		s.printf("Deleted setlist %d: %s (%d entries)\n", sl.DisplayID, sl.Title, entries)
		return nil
	}),
}

var setlistAddPieceCmd = &cobra.Command{
	Use:   "add-piece <setlist> <piece>",
	Short: "Append a piece to the end of a setlist",
	Long: `Append a piece to the end of a setlist. Both references take a display
number, an internal id or part of a title; quote titles that contain spaces.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		sl, err := s.setlist(args[0])
		if err != nil {
			return err
		}
		p, err := s.piece(args[1])
		if err != nil {
			return err
		}

		item, err := s.setlists.Append(sl.ID, p.ID)
		if err != nil {
			return fmt.Errorf("%q in %q: %w", p.Title, sl.Title, err)
		}
		s.mutated("add_item", catalog.KindSetlist, sl.ID, p.Title)
		s.printf("Added %q to %q at position %d\n", p.Title, sl.Title, item.Order)
		return nil
	}),
}

var setlistRemovePieceCmd = &cobra.Command{
	Use:   "remove-piece <setlist> <position>",
	Short: "Remove the piece at a position and close the gap",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		sl, err := s.setlist(args[0])
		if err != nil {
			return err
		}
		order, err := parsePosition(args[1])
		if err != nil {
			return err
		}

		removed, err := s.setlists.RemoveAt(sl.ID, order)
		if err != nil {
			return fmt.Errorf("%q: %w", sl.Title, err)
		}
		entry := setlist.Entry{Item: *removed}
		if p, ok := s.cat.Piece(removed.PieceID); ok {
			entry.Piece = p
		}
		s.mutated("remove_item", catalog.KindSetlist, sl.ID, entry.Title())
		s.printf("Removed %q from %q\n", entry.Title(), sl.Title)
		return nil
	}),
}

var setlistMoveCmd = &cobra.Command{
	Use:   "move <setlist> <position> up|down",
	Short: "Swap a piece with its neighbour",
	Args:  cobra.ExactArgs(3),
	RunE: withSession(func(s *session, cmd *cobra.Command, args []string) error {
		sl, err := s.setlist(args[0])
		if err != nil {
			return err
		}
		order, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		dir, err := setlist.ParseDirection(args[2])
		if err != nil {
			return err
		}

		if err := s.setlists.Move(sl.ID, order, dir); err != nil {
			return fmt.Errorf("%q: %w", sl.Title, err)
		}
		s.mutated("move_"+dir.String(), catalog.KindSetlist, sl.ID, strconv.Itoa(order))
		return printSetlist(s, sl)
	}),
}

func init() {
	rootCmd.AddCommand(setlistCmd)
	setlistCmd.AddCommand(setlistListCmd, setlistAddCmd, setlistEditCmd, setlistViewCmd, setlistDeleteCmd,
		setlistAddPieceCmd, setlistRemovePieceCmd, setlistMoveCmd)

	for _, c := range []*cobra.Command{setlistAddCmd, setlistEditCmd} {
		c.Flags().String("title", "", "setlist title")
		c.Flags().String("date", "", "performance date (free text)")
		c.Flags().String("location", "", "venue or location")
	}
	setlistAddCmd.Flags().Int("owner", 0, "owner id")
}

func runSetlistAdd(s *session, cmd *cobra.Command, args []string) error {
	f := setlistFieldsFromFlags(cmd)
	f.OwnerID, _ = cmd.Flags().GetInt("owner")

	if f.Title == "" && s.interactive {
		if err := s.askSetlistFields(&f, nil); err != nil {
			return err
		}
	}
	if strings.TrimSpace(f.Title) == "" {
		return catalog.ErrTitleRequired
	}

	sl, err := s.cat.AddSetlist(f)
	if err != nil {
		return err
	}
	s.mutated("add", catalog.KindSetlist, sl.ID, sl.Title)
	s.printf("Added setlist %d: %s\n", sl.DisplayID, sl.Title)
	return nil
}

func runSetlistEdit(s *session, cmd *cobra.Command, args []string) error {
	sl, err := s.setlist(args[0])
	if err != nil {
		return err
	}

	f := setlistFieldsFromFlags(cmd)
	if f == (catalog.SetlistFields{}) {
		if !s.interactive {
			return fmt.Errorf("nothing to change (use --title, --date or --location): %w", util.ErrInvalidArgument)
		}
		if err := s.askSetlistFields(&f, sl); err != nil {
			return err
		}
	}

	sl, err = s.cat.EditSetlist(sl.ID, f)
	if err != nil {
		return err
	}
	s.mutated("edit", catalog.KindSetlist, sl.ID, sl.Title)
	s.printf("Updated setlist %d: %s\n", sl.DisplayID, sl.Title)
	return nil
}

func runSetlistView(s *session, cmd *cobra.Command, args []string) error {
	sl, err := s.setlist(args[0])
	if err != nil {
		return err
	}
	return printSetlist(s, sl)
}

func printSetlist(s *session, sl *catalog.Setlist) error {
	heading := sl.Title
	if sl.Date != "" {
		heading += " - " + sl.Date
	}
	if sl.Location != "" {
		heading += " @ " + sl.Location
	}
	s.printf("%s\n", heading)

	seq := s.setlists.ListFor(sl.ID)
	if seq.Empty() {
		s.printf("%s\n", setlist.NoPiecesYet)
		return nil
	}

	rows := make([][]string, 0, seq.Len())
	for entry := range seq.All() {
		composer, readiness := "", ""
		if entry.Piece != nil {
			composer = entry.Piece.Composer
			readiness = string(entry.Piece.Readiness)
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Item.Order),
			entry.Title(),
			composer,
			readiness,
		})
	}
	s.printf("%s\n", renderTable(s.tableWidth(),
		[]string{"Pos", "Title", "Composer", "Readiness"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("position %q is not a number: %w", s, util.ErrInvalidArgument)
	}
	return n, nil
}

func setlistFieldsFromFlags(cmd *cobra.Command) catalog.SetlistFields {
	title, _ := cmd.Flags().GetString("title")
	date, _ := cmd.Flags().GetString("date")
	location, _ := cmd.Flags().GetString("location")
	return catalog.SetlistFields{Title: title, Date: date, Location: location}
}

func (s *session) askSetlistFields(f *catalog.SetlistFields, current *catalog.Setlist) error {
	if current == nil {
		current = &catalog.Setlist{}
	}
	prompts := []struct {
		label   string
		current string
		dst     *string
	}{
		{"Title", current.Title, &f.Title},
		{"Date", current.Date, &f.Date},
		{"Location", current.Location, &f.Location},
	}
	for _, q := range prompts {
		v, err := s.ask(q.label, q.current)
		if err != nil {
			return err
		}
		*q.dst = v
	}
	return nil
}
