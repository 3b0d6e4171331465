package resolve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/franz/repertoire/internal/catalog"
)

// Prompter asks the user to pick one of several candidates and returns the
// raw answer.
type Prompter interface {
	Choose(kind catalog.Kind, candidates []catalog.Ref) (string, error)
}

// Resolve runs a reference to completion. Without a prompter an ambiguous
// reference fails with ErrAmbiguousReference.
func (r *Resolver) Resolve(kind catalog.Kind, ref string, p Prompter) (int, error) {
	res := r.Begin(kind, ref)

	for res.State() == StateAwaitingDisambiguation {
		answer := ""
		if p != nil {
			var err error
			answer, err = p.Choose(res.Kind(), res.Candidates())
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("read choice: %w", err)
			}
		}
		if err := res.Choose(answer); err != nil {
			return 0, err
		}
	}

	return res.Result()
}

// LinePrompter lists candidates on Out and reads one answer line from In
type LinePrompter struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewLinePrompter creates a prompter over an input stream and an output writer
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{In: bufio.NewReader(in), Out: out}
}

// Choose prints "Multiple matches:" with one line per candidate
// ("- 3: Nocturne (Chopin)") and reads the answer.
func (lp *LinePrompter) Choose(kind catalog.Kind, candidates []catalog.Ref) (string, error) {
	fmt.Fprintln(lp.Out, "Multiple matches:")
	for _, c := range candidates {
		fmt.Fprintf(lp.Out, "- %s\n", FormatCandidate(c))
	}
	fmt.Fprintf(lp.Out, "Choose %s by number: ", kind)

	line, err := lp.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return strings.TrimSpace(line), err
	}
	return strings.TrimSpace(line), nil
}

// FormatCandidate renders a candidate as "<display id>: <name> (<detail>)"
func FormatCandidate(c catalog.Ref) string {
	if c.Detail == "" {
		return fmt.Sprintf("%d: %s", c.DisplayID, c.Name)
	}
	return fmt.Sprintf("%d: %s (%s)", c.DisplayID, c.Name, c.Detail)
}
