package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/codec"
	"github.com/franz/repertoire/internal/report"
	"github.com/franz/repertoire/internal/resolve"
	"github.com/franz/repertoire/internal/setlist"
	"github.com/franz/repertoire/internal/util"
	"github.com/spf13/cobra"
)

// recoverableErrors end a command with a warning instead of a failure.
// Nothing is saved when one of them occurs.
var recoverableErrors = []error{
	resolve.ErrEmptyReference,
	resolve.ErrNoMatch,
	resolve.ErrAmbiguousReference,
	setlist.ErrDuplicateItem,
	setlist.ErrPieceNotFound,
	setlist.ErrPositionNotFound,
	setlist.ErrBoundaryReached,
	catalog.ErrTitleRequired,
}

func recoverable(err error) bool {
	for _, target := range recoverableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// session is one command run against the loaded catalog
type session struct {
	codec    *codec.Codec
	cat      *catalog.Store
	events   *report.EventLogger
	resolver *resolve.Resolver
	setlists *setlist.Manager
	prompter resolve.Prompter

	in          *bufio.Reader
	out         io.Writer
	interactive bool
	dirty       bool
}

func openSession(cmd *cobra.Command) (*session, error) {
	events := openEventLog()

	c := codec.New(dataPaths(), events)
	cat, result, err := c.Load()
	if err != nil {
		events.LogError(report.EventLoad, c.Paths().Pieces, err)
		events.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if result.Backfilled > 0 {
		util.InfoLog("Assigned display numbers to %d entries", result.Backfilled)
	}
	util.DebugLog("Loaded %d pieces, %d setlists, %d setlist entries", result.Pieces, result.Setlists, result.Items)

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	return &session{
		codec:       c,
		cat:         cat,
		events:      events,
		resolver:    resolve.New(cat),
		setlists:    setlist.NewManager(cat),
		prompter:    &resolve.LinePrompter{In: in, Out: out},
		in:          in,
		out:         out,
		interactive: util.IsInteractive(),
		// a backfill changes what is on disk
		dirty: result.Backfilled > 0,
	}, nil
}

// withSession wraps a command body: load, run, then save if the body
// changed anything.
func withSession(fn func(s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		return s.finish(fn(s, cmd, args))
	}
}

// finish turns recoverable errors into warnings and persists changes
func (s *session) finish(err error) error {
	if err != nil {
		if recoverable(err) {
			util.WarnLog("%v", err)
			return nil
		}
		return err
	}
	if !s.dirty {
		return nil
	}
	return s.save()
}

func (s *session) save() error {
	err := s.codec.Save(s.cat, codec.SaveOptions{})
	if errors.Is(err, codec.ErrRefuseOverwrite) {
		util.WarnLog("Not saved: %v", err)
		return nil
	}
	if err != nil {
		s.events.LogError(report.EventSave, s.codec.Paths().Pieces, err)
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *session) close() {
	s.events.Close()
}

// mutated records a change for the event log and marks the session dirty
func (s *session) mutated(action string, kind catalog.Kind, id int, detail string) {
	s.dirty = true
	s.events.LogMutate(action, kind.String(), id, detail)
}

func (s *session) resolve(kind catalog.Kind, ref string) (int, error) {
	id, err := s.resolver.Resolve(kind, ref, s.prompter)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", kind, ref, err)
	}
	return id, nil
}

func (s *session) piece(ref string) (*catalog.Piece, error) {
	id, err := s.resolve(catalog.KindPiece, ref)
	if err != nil {
		return nil, err
	}
	p, _ := s.cat.Piece(id)
	return p, nil
}

func (s *session) setlist(ref string) (*catalog.Setlist, error) {
	id, err := s.resolve(catalog.KindSetlist, ref)
	if err != nil {
		return nil, err
	}
	sl, _ := s.cat.Setlist(id)
	return sl, nil
}

// ask prints a prompt and reads one trimmed line. The current value, when
// set, is shown in brackets and kept on an empty answer.
func (s *session) ask(label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(s.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(s.out, "%s: ", label)
	}

	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}

// tableWidth is the width tables are wrapped to, 0 when out is not a terminal
func (s *session) tableWidth() int {
	return outputWidth(s.out)
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
