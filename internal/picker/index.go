// Package picker implements the interactive crackme chooser: fuzzy filtering,
// the cursor over the filtered list and lazy description prefetching.
package picker

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

// searchTexts implements fuzzy.Source over record projections.
type searchTexts []*crackme.Record

func (s searchTexts) String(i int) string { return s[i].SearchText() }
func (s searchTexts) Len() int            { return len(s) }

// Index matches queries against a fixed record collection.
type Index struct {
	records []*crackme.Record
}

// NewIndex returns an index over records. The slice is not copied.
func NewIndex(records []*crackme.Record) *Index {
	return &Index{records: records}
}

// Record returns the record at collection position i.
func (x *Index) Record(i int) *crackme.Record {
	return x.records[i]
}

// Search returns the collection positions whose searchable text fuzzily
// matches query, in collection order. A blank query matches everything.
// Projections are rebuilt on every call so descriptions filled in since the
// last search are matched too.
func (x *Index) Search(query string) []int {
	q := strings.TrimSpace(query)
	if q == "" {
		all := make([]int, len(x.records))
		for i := range all {
			all[i] = i
		}
		return all
	}

	matches := fuzzy.FindFrom(q, searchTexts(x.records))
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	sort.Ints(out)
	return out
}
