package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

// Rating bounds accepted by the search form.
const (
	MinRating = 1
	MaxRating = 6
)

// Range is an inclusive rating range.
type Range struct {
	Min uint8
	Max uint8
}

// FullRange covers every rating.
var FullRange = Range{Min: MinRating, Max: MaxRating}

// ParseRange parses "a..b" with MinRating <= a <= b <= MaxRating.
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "..")
	if !ok {
		return Range{}, fmt.Errorf("invalid range %q: expected a..b", s)
	}
	a, err := strconv.ParseUint(lo, 10, 8)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	b, err := strconv.ParseUint(hi, 10, 8)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if a < MinRating || b > MaxRating || a > b {
		return Range{}, fmt.Errorf("invalid range %q: bounds must satisfy %d <= a <= b <= %d", s, MinRating, MaxRating)
	}
	return Range{Min: uint8(a), Max: uint8(b)}, nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}

// SearchQuery is the set of criteria sent to the search form.
type SearchQuery struct {
	Name       string
	Author     string
	Difficulty Range
	Quality    Range
	Language   *crackme.Language
	Platform   *crackme.Platform
}

// NewSearchQuery returns a query that matches everything.
func NewSearchQuery() SearchQuery {
	return SearchQuery{Difficulty: FullRange, Quality: FullRange}
}

// Form encodes the query as the search form expects it.
func (q SearchQuery) Form(token string) url.Values {
	v := url.Values{}
	v.Set("name", q.Name)
	v.Set("author", q.Author)
	v.Set("difficulty-min", strconv.Itoa(int(q.Difficulty.Min)))
	v.Set("difficulty-max", strconv.Itoa(int(q.Difficulty.Max)))
	v.Set("quality-min", strconv.Itoa(int(q.Quality.Min)))
	v.Set("quality-max", strconv.Itoa(int(q.Quality.Max)))
	v.Set("token", token)
	if q.Language != nil {
		v.Set("lang", q.Language.String())
	}
	if q.Platform != nil {
		v.Set("platform", q.Platform.String())
	}
	return v
}
