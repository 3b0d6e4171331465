// Package resolve turns a free-form reference typed by a user (display id,
// internal id or part of a title) into exactly one internal id.
//
// Resolution is a small state machine:
//
//	Resolving -> AwaitingDisambiguation -> Resolved | Failed
//
// A Resolution that matched several titles waits for the caller to feed a
// follow-up choice through Choose. Resolver.Resolve drives the machine with a
// Prompter for interactive callers.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/franz/repertoire/internal/catalog"
	"github.com/franz/repertoire/internal/meta"
)

var (
	// ErrEmptyReference is returned for empty or whitespace-only input
	ErrEmptyReference = errors.New("no reference provided")

	// ErrNoMatch is returned when nothing matches the reference
	ErrNoMatch = errors.New("no match")

	// ErrAmbiguousReference is returned when several entities matched and
	// the follow-up choice was not a number
	ErrAmbiguousReference = errors.New("ambiguous reference")

	// ErrNoChoicePending is returned by Choose outside AwaitingDisambiguation
	ErrNoChoicePending = errors.New("no disambiguation pending")
)

// Source is the read-only view of the catalog the resolver needs.
// *catalog.Store satisfies it.
type Source interface {
	Refs(kind catalog.Kind) []catalog.Ref
	ByDisplayID(kind catalog.Kind, displayID int) (int, bool)
	Exists(kind catalog.Kind, id int) bool
}

// State is the position of a Resolution in the state machine
type State int

const (
	StateResolving State = iota
	StateAwaitingDisambiguation
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAwaitingDisambiguation:
		return "awaiting-disambiguation"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolver resolves references against a Source. It never mutates it.
type Resolver struct {
	src Source
}

// New creates a resolver over src
func New(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolution tracks one reference through the state machine
type Resolution struct {
	src        Source
	kind       catalog.Kind
	state      State
	ref        string
	candidates []catalog.Ref
	id         int
	err        error
}

// Begin starts resolving ref. The returned Resolution is already past
// StateResolving: it is Resolved, Failed, or AwaitingDisambiguation.
func (r *Resolver) Begin(kind catalog.Kind, ref string) *Resolution {
	res := &Resolution{src: r.src, kind: kind}
	res.resolve(ref)
	return res
}

// State returns the current state
func (res *Resolution) State() State { return res.state }

// Kind returns the entity kind being resolved
func (res *Resolution) Kind() catalog.Kind { return res.kind }

// Candidates returns the matches awaiting a choice, in catalog order
func (res *Resolution) Candidates() []catalog.Ref {
	out := make([]catalog.Ref, len(res.candidates))
	copy(out, res.candidates)
	return out
}

// Result returns the resolved internal id, or the failure. While a choice
// is pending it reports ErrNoChoicePending.
func (res *Resolution) Result() (int, error) {
	switch res.state {
	case StateResolved:
		return res.id, nil
	case StateFailed:
		return 0, res.err
	default:
		return 0, ErrNoChoicePending
	}
}

// Choose feeds the follow-up answer to a pending disambiguation. A
// numeric answer is resolved again from the start (display id first); any
// other answer fails the resolution with ErrAmbiguousReference.
func (res *Resolution) Choose(input string) error {
	if res.state != StateAwaitingDisambiguation {
		return ErrNoChoicePending
	}

	choice := strings.TrimSpace(input)
	if !isNumeric(choice) {
		res.fail(fmt.Errorf("%d %ss match %q: %w", len(res.candidates), res.kind, res.ref, ErrAmbiguousReference))
		return nil
	}

	res.resolve(choice)
	return nil
}

func (res *Resolution) resolve(ref string) {
	res.state = StateResolving
	res.candidates = nil
	res.ref = strings.TrimSpace(ref)

	if res.ref == "" {
		res.fail(ErrEmptyReference)
		return
	}

	if isNumeric(res.ref) {
		if n, err := strconv.Atoi(res.ref); err == nil {
			// display ids are what users see, so they win over internal ids
			if id, ok := res.src.ByDisplayID(res.kind, n); ok {
				res.succeed(id)
				return
			}
			if res.src.Exists(res.kind, n) {
				res.succeed(n)
				return
			}
		}
	}

	var matches []catalog.Ref
	needle := meta.Fold(res.ref)
	for _, ref := range res.src.Refs(res.kind) {
		if strings.Contains(meta.Fold(ref.Name), needle) {
			matches = append(matches, ref)
		}
	}

	switch len(matches) {
	case 0:
		res.fail(fmt.Errorf("no %s matched %q: %w", res.kind, res.ref, ErrNoMatch))
	case 1:
		res.succeed(matches[0].ID)
	default:
		res.candidates = matches
		res.state = StateAwaitingDisambiguation
	}
}

func (res *Resolution) succeed(id int) {
	res.id = id
	res.err = nil
	res.candidates = nil
	res.state = StateResolved
}

func (res *Resolution) fail(err error) {
	res.id = 0
	res.err = err
	res.candidates = nil
	res.state = StateFailed
}

// isNumeric reports whether s is non-empty and made only of ASCII digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
