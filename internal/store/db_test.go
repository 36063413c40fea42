package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(id, name, author string) *crackme.Record {
	return &crackme.Record{
		Name:      name,
		Author:    author,
		Language:  crackme.LanguageCOrCPlusPlus,
		Platform:  crackme.PlatformUnixLinux,
		Date:      "5:40 PM 05/07/2021",
		Stats:     crackme.Stats{Quality: 4.0, Difficulty: 1.0},
		ID:        id,
		Solutions: 0,
		Comments:  1,
	}
}

const (
	idA = "60957b9a33c5d458ce0ec88e"
	idB = "60816fca33c5d42f38520831"
)

func TestSaveRecordsAndDescription(t *testing.T) {
	db := openTestDB(t)

	a := testRecord(idA, "EZwan", "DirkD")
	b := testRecord(idB, "SAFE_01", "oles")
	require.NoError(t, b.SetDescription("easy crackme"))
	require.NoError(t, db.SaveRecords([]*crackme.Record{a, b}))

	_, ok, err := db.Description(idA)
	require.NoError(t, err)
	require.False(t, ok)

	desc, ok, err := db.Description(idB)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "easy crackme", desc)

	_, ok, err = db.Description("unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoredDescriptionIsNeverReplaced(t *testing.T) {
	db := openTestDB(t)

	first := testRecord(idA, "EZwan", "DirkD")
	require.NoError(t, first.SetDescription("first"))
	require.NoError(t, db.SaveRecords([]*crackme.Record{first}))

	again := testRecord(idA, "EZwan", "DirkD")
	require.NoError(t, again.SetDescription("second"))
	require.NoError(t, db.SaveRecords([]*crackme.Record{again}))
	require.NoError(t, db.SaveDescription(idA, "third"))

	desc, _, err := db.Description(idA)
	require.NoError(t, err)
	require.Equal(t, "first", desc)
}

func TestSaveDescriptionFillsEmptySlot(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRecords([]*crackme.Record{testRecord(idA, "EZwan", "DirkD")}))
	require.NoError(t, db.SaveDescription(idA, "filled later"))

	// A later page fetch without a description keeps the stored one.
	require.NoError(t, db.SaveRecords([]*crackme.Record{testRecord(idA, "EZwan", "DirkD")}))

	desc, ok, err := db.Description(idA)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "filled later", desc)
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)

	a := testRecord(idA, "EZwan", "DirkD")
	b := testRecord(idB, "SAFE_01", "oles")
	b.Language = crackme.LanguageVisualBasic
	b.Platform = crackme.PlatformWindows
	require.NoError(t, b.SetDescription("patch the serial check"))
	require.NoError(t, db.SaveRecords([]*crackme.Record{a, b}))

	results, err := db.Search("ezwan", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, idA, results[0].ID)
	require.Equal(t, crackme.LanguageCOrCPlusPlus, results[0].Language)
	require.Equal(t, crackme.PlatformUnixLinux, results[0].Platform)
	require.Equal(t, float32(4.0), results[0].Stats.Quality)
	require.Equal(t, uint64(1), results[0].Comments)
	require.False(t, results[0].HasDescription())

	results, err = db.Search("serial", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "SAFE_01", results[0].Name)
	require.Equal(t, crackme.LanguageVisualBasic, results[0].Language)
	desc, ok := results[0].Description()
	require.True(t, ok)
	require.Equal(t, "patch the serial check", desc)

	results, err = db.Search("   ", 10)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)

	a := testRecord(idA, "EZwan", "DirkD")
	b := testRecord(idB, "SAFE_01", "DirkD")
	require.NoError(t, b.SetDescription("x"))
	require.NoError(t, db.SaveRecords([]*crackme.Record{a, b}))

	stats, err := db.GetStats()
	require.NoError(t, err)
	require.Equal(t, Stats{Crackmes: 2, Described: 1, Authors: 1}, stats)
}

func TestSanitizeFTS5Query(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ezwan", `"ezwan"`},
		{"serial  check", `"serial" "check"`},
		{`a"b`, `"a""b"`},
		{"(^)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFTS5Query(tt.in); got != tt.want {
			t.Errorf("sanitizeFTS5Query(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeDescriber struct {
	calls int
	desc  string
	err   error
}

func (f *fakeDescriber) Description(ctx context.Context, id string) (string, error) {
	f.calls++
	return f.desc, f.err
}

func TestCachedDescriber(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRecords([]*crackme.Record{testRecord(idA, "EZwan", "DirkD")}))

	next := &fakeDescriber{desc: "from network"}
	cd := &CachedDescriber{DB: db, Next: next}

	desc, err := cd.Description(context.Background(), idA)
	require.NoError(t, err)
	require.Equal(t, "from network", desc)

	desc, err = cd.Description(context.Background(), idA)
	require.NoError(t, err)
	require.Equal(t, "from network", desc)
	require.Equal(t, 1, next.calls)
}

func TestCachedDescriberPassesErrorsThrough(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")
	cd := &CachedDescriber{DB: db, Next: &fakeDescriber{err: boom}}

	_, err := cd.Description(context.Background(), idA)
	require.ErrorIs(t, err, boom)
}
