// Package parser turns crackmes.one pages into records.
//
// Pages are read positionally: the text of a region is flattened into tokens and
// each field takes the next token. Anything left over after the last declared
// field is treated as a template change and fails the parse.
package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

const (
	listRowSelector     = "#content-list .text-center"
	overviewInfoSel     = "div.columns.panel-background div.column.col-3"
	overviewNameSel     = "h3"
	overviewDescSel     = "div.columns div.col-12 span"
	overviewSolutionSel = "div#solutions div.col-9"
	overviewCommentSel  = "div#comments p"
	downloadLinkSel     = "a.btn-download"
	searchTokenSel      = "#token"

	// The info panel ends with the rating widget's labels.
	overviewRateTokens = 2

	nameSeparator = "'s "
)

// Overview is a fully parsed crackme page.
type Overview struct {
	Record *crackme.Record
	// DownloadHref is the archive link as found on the page, empty if missing.
	DownloadHref string
}

// ParseList parses a listing page (latest or search results).
func ParseList(r io.Reader) ([]*crackme.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return ParseListDocument(doc)
}

// ParseListDocument parses every row of a listing page. Either all rows parse
// or none are returned.
func ParseListDocument(doc *goquery.Document) ([]*crackme.Record, error) {
	rows, err := Rows(doc, listRowSelector)
	if err != nil {
		return nil, err
	}
	records := make([]*crackme.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := ParseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseRow reads name, author, language, difficulty, quality, platform, date,
// solutions and comments from the row tokens, in that order.
func ParseRow(row Row) (*crackme.Record, error) {
	s := newStream(row.Tokens)
	rec := &crackme.Record{ID: row.ID}
	var err error

	if rec.Name, err = s.next("name"); err != nil {
		return nil, err
	}
	if rec.Author, err = s.next("author"); err != nil {
		return nil, err
	}
	if rec.Language, err = s.language("language"); err != nil {
		return nil, err
	}
	if rec.Stats.Difficulty, err = s.float("difficulty"); err != nil {
		return nil, err
	}
	if rec.Stats.Quality, err = s.float("quality"); err != nil {
		return nil, err
	}
	if rec.Platform, err = s.platform("platform"); err != nil {
		return nil, err
	}
	if rec.Date, err = s.next("date"); err != nil {
		return nil, err
	}
	if rec.Solutions, err = s.uint("solutions"); err != nil {
		return nil, err
	}
	if rec.Comments, err = s.uint("comments"); err != nil {
		return nil, err
	}
	if err := s.end(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseOverview parses a crackme's own page. The returned record always has its
// description set.
func ParseOverview(r io.Reader, id string) (*Overview, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return ParseOverviewDocument(doc, id)
}

// ParseOverviewDocument is ParseOverview on an already parsed document.
func ParseOverviewDocument(doc *goquery.Document, id string) (*Overview, error) {
	s := newStream(panelValues(Tokens(doc.Find(overviewInfoSel))))
	rec := &crackme.Record{ID: id}
	var err error

	if rec.Author, err = s.next("author"); err != nil {
		return nil, err
	}
	if rec.Language, err = s.language("language"); err != nil {
		return nil, err
	}
	if rec.Date, err = s.next("upload"); err != nil {
		return nil, err
	}
	if rec.Platform, err = s.platform("platform"); err != nil {
		return nil, err
	}
	if rec.Stats.Difficulty, err = s.float("difficulty"); err != nil {
		return nil, err
	}
	if rec.Stats.Quality, err = s.float("quality"); err != nil {
		return nil, err
	}
	s.skip(overviewRateTokens)
	if err := s.end(); err != nil {
		return nil, err
	}

	if rec.Name, err = overviewName(doc); err != nil {
		return nil, err
	}
	desc, err := overviewDescription(doc)
	if err != nil {
		return nil, err
	}
	if err := rec.SetDescription(desc); err != nil {
		return nil, err
	}
	rec.Solutions = uint64(doc.Find(overviewSolutionSel).Length())
	rec.Comments = uint64(doc.Find(overviewCommentSel).Length())

	href, _ := doc.Find(downloadLinkSel).First().Attr("href")
	return &Overview{Record: rec, DownloadHref: strings.TrimSpace(href)}, nil
}

// panelValues keeps the value half of the panel's label/value pairs: the
// second token and every other one after it.
func panelValues(tokens []string) []string {
	var out []string
	for i := 1; i < len(tokens); i += 2 {
		out = append(out, tokens[i])
	}
	return out
}

func overviewName(doc *goquery.Document) (string, error) {
	h := doc.Find(overviewNameSel).First()
	if h.Length() == 0 {
		return "", &NotFoundError{Field: "name"}
	}
	// The heading is the author link followed by "'s <name>"; only the text
	// after the link is split, so an author containing "'s " is harmless.
	tokens := Tokens(h)
	if len(tokens) < 2 {
		return "", &NotFoundError{Field: "name"}
	}
	_, name, ok := strings.Cut(tokens[1], nameSeparator)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", &NotFoundError{Field: "name"}
	}
	return name, nil
}

func overviewDescription(doc *goquery.Document) (string, error) {
	tokens := Tokens(doc.Find(overviewDescSel).First())
	if len(tokens) == 0 {
		return "", &NotFoundError{Field: "description"}
	}
	return tokens[0], nil
}

// ParseSearchToken extracts the anti-forgery token from the search form.
func ParseSearchToken(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	token, ok := doc.Find(searchTokenSel).First().Attr("value")
	if !ok || token == "" {
		return "", &NotFoundError{Field: "token"}
	}
	return token, nil
}
