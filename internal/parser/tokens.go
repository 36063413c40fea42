package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

const crackmeHrefPrefix = "/crackme/"

// Row is the token stream of one list row together with its crackme id.
type Row struct {
	ID     string
	Tokens []string
}

// Tokens returns the trimmed, non-blank text fragments under sel in document
// order.
func Tokens(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// Rows builds one Row per element matched by rowSelector. A row without a
// crackme link fails the whole page.
func Rows(doc *goquery.Document, rowSelector string) ([]Row, error) {
	var rows []Row
	var err error
	doc.Find(rowSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, ok := rowID(s)
		if !ok {
			err = &NotFoundError{Field: "ID"}
			return false
		}
		rows = append(rows, Row{ID: id, Tokens: Tokens(s)})
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func rowID(s *goquery.Selection) (string, bool) {
	href, ok := s.Find(`td a[href^="` + crackmeHrefPrefix + `"]`).First().Attr("href")
	if !ok {
		return "", false
	}
	href = strings.TrimRight(href, "/")
	id := href[strings.LastIndex(href, "/")+1:]
	if id == "" {
		return "", false
	}
	return id, true
}

// stream hands out tokens positionally. Every read names the field it is for so
// failures say what was missing.
type stream struct {
	tokens []string
	pos    int
}

func newStream(tokens []string) *stream {
	return &stream{tokens: tokens}
}

func (s *stream) next(field string) (string, error) {
	if s.pos >= len(s.tokens) {
		return "", &NotFoundError{Field: field}
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, nil
}

func (s *stream) float(field string) (float32, error) {
	t, err := s.next(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t, 32)
	if err != nil {
		return 0, &DetailParseError{Field: field, Value: t, Err: err}
	}
	return float32(v), nil
}

func (s *stream) uint(field string) (uint64, error) {
	t, err := s.next(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(t, 10, 64)
	if err != nil {
		return 0, &DetailParseError{Field: field, Value: t, Err: err}
	}
	return v, nil
}

func (s *stream) language(field string) (crackme.Language, error) {
	t, err := s.next(field)
	if err != nil {
		return crackme.LanguageOther, err
	}
	l, err := crackme.ParseLanguage(t)
	if err != nil {
		return crackme.LanguageOther, &DetailParseError{Field: field, Value: t, Err: err}
	}
	return l, nil
}

func (s *stream) platform(field string) (crackme.Platform, error) {
	t, err := s.next(field)
	if err != nil {
		return crackme.PlatformOther, err
	}
	p, err := crackme.ParsePlatform(t)
	if err != nil {
		return crackme.PlatformOther, &DetailParseError{Field: field, Value: t, Err: err}
	}
	return p, nil
}

// skip drops up to n tokens.
func (s *stream) skip(n int) {
	s.pos = min(s.pos+n, len(s.tokens))
}

// end fails if any token is left unread.
func (s *stream) end() error {
	if s.pos < len(s.tokens) {
		return &TrailingTokensError{Tokens: append([]string(nil), s.tokens[s.pos:]...)}
	}
	return nil
}
