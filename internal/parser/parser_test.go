package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

const listPage = `
<html><body>
<table class="table" id="content-list">
  <tr class="text-center">
    <td><a href="/crackme/60957b9a33c5d458ce0ec88e">EZwan</a></td>
    <td><a href="/user/DirkD">DirkD</a></td>
    <td>C/C++</td>
    <td>1.0</td>
    <td>4.0</td>
    <td>Unix/Linux</td>
    <td>
        5:40 PM 05/07/2021
    </td>
    <td>0</td>
    <td>1</td>
  </tr>
  <tr class="text-center">
    <td><a href="/crackme/60816fca33c5d42f38520831">SAFE_01</a></td>
    <td><a href="/user/oles">oles</a></td>
    <td>(Visual) Basic</td>
    <td>1.0</td>
    <td>3.7</td>
    <td>Windows</td>
    <td>12:44 PM 04/22/2021</td>
    <td>2</td>
    <td>0</td>
  </tr>
</table>
</body></html>`

const overviewPage = `
<html><body>
<h3><a href="/user/oles">oles</a>'s SAFE_01</h3>
<div class="columns panel-background">
  <div class="column col-3"><p>Author</p><p><a href="/user/oles">oles</a></p></div>
  <div class="column col-3"><p>Language</p><p>(Visual) Basic</p></div>
  <div class="column col-3"><p>Upload</p><p>12:44 PM 04/22/2021</p></div>
  <div class="column col-3"><p>Platform</p><p>Windows</p></div>
  <div class="column col-3"><p>Difficulty</p><p>1.0</p></div>
  <div class="column col-3"><p>Quality</p><p>3.7</p></div>
  <div class="column col-3">
    <span>Rate quality</span><span>rate</span>
    <span>Rate difficulty</span><span>rate</span>
  </div>
</div>
<div class="columns">
  <div class="column col-12">
    <span>easy crackme ..enjoy )</span>
  </div>
</div>
<a class="btn btn-download" href="/static/crackme/60816fca33c5d42f38520831.zip">Download</a>
<div id="solutions"></div>
<div id="comments"><p>nice one</p><p>thanks</p></div>
</body></html>`

var recordCmp = cmp.AllowUnexported(crackme.Record{})

func TestParseListFirstRow(t *testing.T) {
	records, err := ParseList(strings.NewReader(listPage))
	require.NoError(t, err)
	require.Len(t, records, 2)

	want := &crackme.Record{
		Name:      "EZwan",
		Author:    "DirkD",
		Language:  crackme.LanguageCOrCPlusPlus,
		Platform:  crackme.PlatformUnixLinux,
		Date:      "5:40 PM 05/07/2021",
		Stats:     crackme.Stats{Quality: 4.0, Difficulty: 1.0},
		ID:        "60957b9a33c5d458ce0ec88e",
		Solutions: 0,
		Comments:  1,
	}
	if diff := cmp.Diff(want, records[0], recordCmp); diff != "" {
		t.Fatalf("first record mismatch (-want +got):\n%s", diff)
	}
	require.False(t, records[0].HasDescription())
	require.Equal(t, crackme.LanguageVisualBasic, records[1].Language)
	require.Equal(t, uint64(2), records[1].Solutions)
}

func TestParseListDeterministic(t *testing.T) {
	a, err := ParseList(strings.NewReader(listPage))
	require.NoError(t, err)
	b, err := ParseList(strings.NewReader(listPage))
	require.NoError(t, err)
	if diff := cmp.Diff(a, b, recordCmp); diff != "" {
		t.Fatalf("parses differ:\n%s", diff)
	}
}

func TestParseRowFieldOrder(t *testing.T) {
	row := Row{
		ID:     "60957b9a33c5d458ce0ec88e",
		Tokens: []string{"EZwan", "DirkD", "C/C++", "1.0", "4.0", "Unix/Linux", "5:40 PM 05/07/2021", "0", "1"},
	}
	rec, err := ParseRow(row)
	require.NoError(t, err)
	require.Equal(t, "EZwan", rec.Name)
	require.Equal(t, "DirkD", rec.Author)
	require.Equal(t, crackme.LanguageCOrCPlusPlus, rec.Language)
	require.Equal(t, float32(1.0), rec.Stats.Difficulty)
	require.Equal(t, float32(4.0), rec.Stats.Quality)
	require.Equal(t, crackme.PlatformUnixLinux, rec.Platform)
	require.Equal(t, "5:40 PM 05/07/2021", rec.Date)
	require.Equal(t, uint64(0), rec.Solutions)
	require.Equal(t, uint64(1), rec.Comments)
}

func TestParseRowErrors(t *testing.T) {
	base := []string{"EZwan", "DirkD", "C/C++", "1.0", "4.0", "Unix/Linux", "5:40 PM 05/07/2021", "0", "1"}
	with := func(i int, v string) []string {
		out := append([]string(nil), base...)
		out[i] = v
		return out
	}

	tests := []struct {
		name      string
		tokens    []string
		notFound  string
		parseFail string
		trailing  bool
	}{
		{name: "empty", tokens: nil, notFound: "name"},
		{name: "missing comments", tokens: base[:8], notFound: "comments"},
		{name: "missing date", tokens: base[:6], notFound: "date"},
		{name: "bad difficulty", tokens: with(3, "hard"), parseFail: "difficulty"},
		{name: "bad quality", tokens: with(4, "4,0"), parseFail: "quality"},
		{name: "unknown language", tokens: with(2, "Brainfuck"), parseFail: "language"},
		{name: "unknown platform", tokens: with(5, "Plan 9"), parseFail: "platform"},
		{name: "negative solutions", tokens: with(7, "-1"), parseFail: "solutions"},
		{name: "extra token", tokens: append(append([]string(nil), base...), "NEW"), trailing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRow(Row{ID: "x", Tokens: tt.tokens})
			require.Error(t, err)
			require.Nil(t, rec)

			var nf *NotFoundError
			var dp *DetailParseError
			var tr *TrailingTokensError
			switch {
			case tt.notFound != "":
				require.True(t, errors.As(err, &nf), "got %v", err)
				require.Equal(t, tt.notFound, nf.Field)
			case tt.parseFail != "":
				require.True(t, errors.As(err, &dp), "got %v", err)
				require.Equal(t, tt.parseFail, dp.Field)
			case tt.trailing:
				require.True(t, errors.As(err, &tr), "got %v", err)
				require.Equal(t, []string{"NEW"}, tr.Tokens)
			}
		})
	}
}

func TestParseListTrailingTokenFailsPage(t *testing.T) {
	page := strings.Replace(listPage, "<td>1</td>", "<td>1</td><td>Hot!</td>", 1)
	records, err := ParseList(strings.NewReader(page))
	require.Nil(t, records)
	var tr *TrailingTokensError
	require.ErrorAs(t, err, &tr)
}

func TestParseListMissingIDFailsPage(t *testing.T) {
	page := strings.Replace(listPage, `href="/crackme/60816fca33c5d42f38520831"`, `href="/somewhere/else"`, 1)
	records, err := ParseList(strings.NewReader(page))
	require.Nil(t, records)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "ID", nf.Field)
}

func TestParseListEmptyPage(t *testing.T) {
	records, err := ParseList(strings.NewReader(`<html><body><table id="content-list"></table></body></html>`))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestTokensSkipsWhitespace(t *testing.T) {
	records, err := ParseList(strings.NewReader(`
<table id="content-list"><tr class="text-center">
<td> <a href="/crackme/60957b9a33c5d458ce0ec88e/"> EZwan </a> </td>
<td>DirkD</td><td>cpp</td><td> 2.5 </td><td>3.0</td><td>linux</td><td>today</td><td>3</td><td>4</td>
</tr></table>`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "60957b9a33c5d458ce0ec88e", records[0].ID)
	require.Equal(t, "EZwan", records[0].Name)
	require.Equal(t, float32(2.5), records[0].Stats.Difficulty)
}

func TestParseOverview(t *testing.T) {
	ov, err := ParseOverview(strings.NewReader(overviewPage), "60816fca33c5d42f38520831")
	require.NoError(t, err)

	want := &crackme.Record{
		Name:      "SAFE_01",
		Author:    "oles",
		Language:  crackme.LanguageVisualBasic,
		Platform:  crackme.PlatformWindows,
		Date:      "12:44 PM 04/22/2021",
		Stats:     crackme.Stats{Quality: 3.7, Difficulty: 1.0},
		ID:        "60816fca33c5d42f38520831",
		Solutions: 0,
		Comments:  2,
	}
	require.NoError(t, want.SetDescription("easy crackme ..enjoy )"))
	if diff := cmp.Diff(want, ov.Record, recordCmp); diff != "" {
		t.Fatalf("overview mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "/static/crackme/60816fca33c5d42f38520831.zip", ov.DownloadHref)
}

func TestParseOverviewAuthorWithPossessive(t *testing.T) {
	page := strings.Replace(overviewPage,
		`<h3><a href="/user/oles">oles</a>'s SAFE_01</h3>`,
		`<h3><a href="/user/chris">Chris's </a>'s SAFE_01</h3>`, 1)
	ov, err := ParseOverview(strings.NewReader(page), "60816fca33c5d42f38520831")
	require.NoError(t, err)
	require.Equal(t, "SAFE_01", ov.Record.Name)

	linkOnly := strings.Replace(overviewPage,
		`<h3><a href="/user/oles">oles</a>'s SAFE_01</h3>`,
		`<h3><a href="/user/oles">oles</a></h3>`, 1)
	_, err = ParseOverview(strings.NewReader(linkOnly), "60816fca33c5d42f38520831")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "name", nf.Field)
}

func TestParseOverviewSchemaDrift(t *testing.T) {
	page := strings.Replace(overviewPage,
		`<span>Rate difficulty</span><span>rate</span>`,
		`<span>Rate difficulty</span><span>rate</span><span>Views</span><span>1200</span>`, 1)
	_, err := ParseOverview(strings.NewReader(page), "60816fca33c5d42f38520831")
	var tr *TrailingTokensError
	require.ErrorAs(t, err, &tr)
	require.Equal(t, []string{"1200"}, tr.Tokens)
}

func TestParseOverviewMissingParts(t *testing.T) {
	noName := strings.Replace(overviewPage, `<h3><a href="/user/oles">oles</a>'s SAFE_01</h3>`, "", 1)
	_, err := ParseOverview(strings.NewReader(noName), "id")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "name", nf.Field)

	noDesc := strings.Replace(overviewPage, `<span>easy crackme ..enjoy )</span>`, "<span> </span>", 1)
	_, err = ParseOverview(strings.NewReader(noDesc), "id")
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "description", nf.Field)

	_, err = ParseOverview(strings.NewReader("<html></html>"), "id")
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "author", nf.Field)
}

func TestParseOverviewBadQuality(t *testing.T) {
	page := strings.Replace(overviewPage, "<p>3.7</p>", "<p>n/a</p>", 1)
	_, err := ParseOverview(strings.NewReader(page), "id")
	var dp *DetailParseError
	require.ErrorAs(t, err, &dp)
	require.Equal(t, "quality", dp.Field)
	require.Equal(t, "n/a", dp.Value)
}

func TestParseSearchToken(t *testing.T) {
	token, err := ParseSearchToken(strings.NewReader(`<form><input type="hidden" id="token" name="token" value="abc123"></form>`))
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	_, err = ParseSearchToken(strings.NewReader(`<form></form>`))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "token", nf.Field)
}
