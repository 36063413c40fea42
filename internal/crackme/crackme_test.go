package crackme

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDescriptionWriteOnce(t *testing.T) {
	r := &Record{Name: "EZwan", ID: "60957b9a33c5d458ce0ec88e"}

	_, ok := r.Description()
	require.False(t, ok)

	require.NoError(t, r.SetDescription("first"))
	err := r.SetDescription("second")
	require.True(t, errors.Is(err, ErrDescriptionSet))

	d, ok := r.Description()
	require.True(t, ok)
	require.Equal(t, "first", d)
}

func TestSetDescriptionEmptyStillCounts(t *testing.T) {
	r := &Record{}
	require.NoError(t, r.SetDescription(""))
	require.True(t, r.HasDescription())
	require.ErrorIs(t, r.SetDescription("later"), ErrDescriptionSet)
}

func TestValidateID(t *testing.T) {
	require.NoError(t, ValidateID("60957b9a33c5d458ce0ec88e"))
	require.Error(t, ValidateID("60957b9a"))
	require.Error(t, ValidateID(""))
}

func TestParseLanguageAliases(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"C/C++", LanguageCOrCPlusPlus},
		{"cpp", LanguageCOrCPlusPlus},
		{"Assembler", LanguageAssembler},
		{"(Visual) Basic", LanguageVisualBasic},
		{"vb", LanguageVisualBasic},
		{"Borland Delphi", LanguageBorlandDelphi},
		{".NET", LanguageDotNet},
		{"dotnet", LanguageDotNet},
		{"Unspecified/other", LanguageOther},
		{" Java ", LanguageJava},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if err != nil {
			t.Fatalf("ParseLanguage(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLanguage(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLanguage("Brainfuck"); err == nil {
		t.Fatal("expected error for unknown language")
	}
	if got := LanguageFromText("Brainfuck"); got != LanguageOther {
		t.Fatalf("LanguageFromText fallback = %v", got)
	}
}

func TestParsePlatformAliases(t *testing.T) {
	for _, in := range []string{"linux", "unix", "Unix/linux etc.", "Unix/Linux"} {
		got, err := ParsePlatform(in)
		require.NoError(t, err, in)
		require.Equal(t, PlatformUnixLinux, got, in)
	}

	got, err := ParsePlatform("Windows 2000/XP only")
	require.NoError(t, err)
	require.Equal(t, PlatformWindows2000XP, got)

	_, err = ParsePlatform("Plan 9")
	require.Error(t, err)
	require.Equal(t, PlatformOther, PlatformFromText("Plan 9"))
}

func TestEnumDisplayRoundTrip(t *testing.T) {
	for _, l := range Languages() {
		got, err := ParseLanguage(l.String())
		require.NoError(t, err)
		require.Equal(t, l, got)
	}
	for _, p := range Platforms() {
		got, err := ParsePlatform(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestSearchTextIncludesDescriptionOnceSet(t *testing.T) {
	r := &Record{
		Name:      "EZwan",
		Author:    "DirkD",
		Language:  LanguageCOrCPlusPlus,
		Platform:  PlatformUnixLinux,
		Date:      "5:40 PM 05/07/2021",
		Stats:     Stats{Quality: 4.0, Difficulty: 1.0},
		ID:        "60957b9a33c5d458ce0ec88e",
		Solutions: 0,
		Comments:  1,
	}
	text := r.SearchText()
	require.True(t, strings.HasPrefix(text, "EZwanDirkDC/C++5:40 PM 05/07/2021Unix/Linux4.01.0"))
	require.NotContains(t, text, "keygen me")

	require.NoError(t, r.SetDescription("keygen me"))
	require.True(t, strings.HasSuffix(r.SearchText(), "01keygen me"))
}

func TestStringRendersDescription(t *testing.T) {
	r := &Record{Name: "SAFE_01", Author: "oles", Stats: Stats{Quality: 3.7, Difficulty: 1}}
	require.NotContains(t, r.String(), "Description")

	require.NoError(t, r.SetDescription("line one\nline two"))
	out := r.String()
	require.Contains(t, out, "Quality: 3.7\n")
	require.Contains(t, out, "Difficulty: 1.0\n")
	require.Contains(t, out, "Description:\nline one\nline two\n")
}
