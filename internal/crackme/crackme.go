package crackme

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// IDLength is the length of every site-assigned crackme id.
const IDLength = 24

// ErrDescriptionSet is returned when a record's description is written twice.
var ErrDescriptionSet = errors.New("description already set")

// Stats holds the community ratings of a crackme.
type Stats struct {
	Quality    float32
	Difficulty float32
}

// Record is a single catalog entry.
type Record struct {
	Name      string
	Author    string
	Language  Language
	Platform  Platform
	Date      string // upload date, kept as the site renders it
	Stats     Stats
	ID        string
	Solutions uint64
	Comments  uint64

	description    string
	hasDescription bool
}

// ValidateID reports whether id looks like a crackme id.
func ValidateID(id string) error {
	if len(id) != IDLength {
		return fmt.Errorf("invalid id %q: expected %d characters, got %d", id, IDLength, len(id))
	}
	return nil
}

// Description returns the description and whether one has been set.
func (r *Record) Description() (string, bool) {
	return r.description, r.hasDescription
}

// HasDescription reports whether the description slot is filled.
func (r *Record) HasDescription() bool {
	return r.hasDescription
}

// SetDescription fills the description slot. It may succeed only once; later
// calls return ErrDescriptionSet and leave the stored value untouched.
func (r *Record) SetDescription(d string) error {
	if r.hasDescription {
		return ErrDescriptionSet
	}
	r.description = d
	r.hasDescription = true
	return nil
}

// SearchText is the concatenation of every field, used for fuzzy filtering.
func (r *Record) SearchText() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	sb.WriteString(r.Author)
	sb.WriteString(r.Language.String())
	sb.WriteString(r.Date)
	sb.WriteString(r.Platform.String())
	sb.WriteString(FormatRating(r.Stats.Quality))
	sb.WriteString(FormatRating(r.Stats.Difficulty))
	sb.WriteString(r.ID)
	sb.WriteString(strconv.FormatUint(r.Solutions, 10))
	sb.WriteString(strconv.FormatUint(r.Comments, 10))
	sb.WriteString(r.description)
	return sb.String()
}

// Title is the one-line label used in lists.
func (r *Record) Title() string {
	return r.Name + " by " + r.Author
}

// String renders the record as a multi-line summary.
func (r *Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", r.Name)
	fmt.Fprintf(&sb, "Author: %s\n", r.Author)
	fmt.Fprintf(&sb, "Language: %s\n", r.Language)
	fmt.Fprintf(&sb, "Upload: %s\n", r.Date)
	fmt.Fprintf(&sb, "Platform: %s\n", r.Platform)
	fmt.Fprintf(&sb, "Quality: %s\n", FormatRating(r.Stats.Quality))
	fmt.Fprintf(&sb, "Difficulty: %s\n", FormatRating(r.Stats.Difficulty))
	fmt.Fprintf(&sb, "Solutions: %d\n", r.Solutions)
	fmt.Fprintf(&sb, "Comments: %d\n", r.Comments)
	if r.hasDescription {
		sep := " "
		if strings.Contains(r.description, "\n") {
			sep = "\n"
		}
		fmt.Fprintf(&sb, "Description:%s%s\n", sep, r.description)
	}
	return sb.String()
}

// FormatRating renders a rating with one decimal place.
func FormatRating(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 1, 32)
}
