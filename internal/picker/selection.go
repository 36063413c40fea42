package picker

// Selection is a cursor over a filtered list of n entries. The zero value has
// no selection.
type Selection struct {
	n   int
	cur int
	ok  bool
}

// Reset points the cursor at the last of n entries, or clears it when n is 0.
func (s *Selection) Reset(n int) {
	s.n = n
	s.cur = max(n-1, 0)
	s.ok = n > 0
}

// Next moves down one entry, stopping at the last.
func (s *Selection) Next() {
	if s.ok && s.cur < s.n-1 {
		s.cur++
	}
}

// Previous moves up one entry, stopping at the first.
func (s *Selection) Previous() {
	if s.ok && s.cur > 0 {
		s.cur--
	}
}

// Current returns the cursor position and whether there is a selection.
func (s *Selection) Current() (int, bool) {
	return s.cur, s.ok
}
