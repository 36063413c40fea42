package picker

import (
	"context"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

// Key is an input key as seen by a Session.
type Key int

const (
	KeyOther Key = iota
	KeyEnter
	KeyEscape
	KeyUp
	KeyDown
	KeyBackspace
	KeyRune
)

// Event is one input event. Rune is only meaningful for KeyRune.
type Event struct {
	Key  Key
	Rune rune
}

// Session is the state of one interactive pick: the query, the filtered
// positions and the cursor. It performs no I/O itself.
type Session struct {
	index    *Index
	query    []rune
	filtered []int
	sel      Selection
	done     bool
	selected *crackme.Record
}

// NewSession starts a session over records with an empty query.
func NewSession(records []*crackme.Record) *Session {
	s := &Session{index: NewIndex(records)}
	s.refilter()
	return s
}

func (s *Session) refilter() {
	s.filtered = s.index.Search(string(s.query))
	s.sel.Reset(len(s.filtered))
}

// Apply handles one event and reports whether the session has terminated.
// Any key without a binding terminates the session with no selection, the
// same as Escape.
func (s *Session) Apply(ev Event) bool {
	if s.done {
		return true
	}
	switch ev.Key {
	case KeyEnter:
		s.finish(s.Current())
	case KeyEscape:
		s.finish(nil)
	case KeyUp:
		s.sel.Previous()
	case KeyDown:
		s.sel.Next()
	case KeyRune:
		s.query = append(s.query, ev.Rune)
		s.refilter()
	case KeyBackspace:
		if len(s.query) > 0 {
			s.query = s.query[:len(s.query)-1]
		}
		s.refilter()
	default:
		s.finish(nil)
	}
	return s.done
}

func (s *Session) finish(r *crackme.Record) {
	s.done = true
	s.selected = r
}

// Handle applies ev and, unless the session terminated, runs the prefetch for
// the new cursor position.
func (s *Session) Handle(ctx context.Context, d Describer, ev Event) (bool, error) {
	if s.Apply(ev) {
		return true, nil
	}
	return false, s.Prefetch(ctx, d)
}

// Prefetch fetches the missing descriptions around the cursor.
func (s *Session) Prefetch(ctx context.Context, d Describer) error {
	cur, ok := s.sel.Current()
	if !ok {
		return nil
	}
	return Prefetch(ctx, d, s.index.records, s.filtered, cur)
}

// Pending returns the record indices the next prefetch would fetch.
func (s *Session) Pending() []int {
	cur, ok := s.sel.Current()
	if !ok {
		return nil
	}
	return Candidates(s.index.records, s.filtered, cur)
}

// Fill stores a description fetched for the record at index i.
func (s *Session) Fill(ctx context.Context, i int, desc string) {
	Fill(ctx, s.index.Record(i), desc)
}

// Done reports whether the session has terminated.
func (s *Session) Done() bool {
	return s.done
}

// Selected returns the chosen record, or nil when the session ended without
// one or is still running.
func (s *Session) Selected() *crackme.Record {
	return s.selected
}

// Query returns the current query text.
func (s *Session) Query() string {
	return string(s.query)
}

// Visible returns the record indices that match the query, in list order.
func (s *Session) Visible() []int {
	return s.filtered
}

// Record returns the record at collection index i.
func (s *Session) Record(i int) *crackme.Record {
	return s.index.Record(i)
}

// Cursor returns the cursor position within Visible and whether it is set.
func (s *Session) Cursor() (int, bool) {
	return s.sel.Current()
}

// Current returns the record under the cursor, or nil.
func (s *Session) Current() *crackme.Record {
	cur, ok := s.sel.Current()
	if !ok {
		return nil
	}
	return s.index.Record(s.filtered[cur])
}
