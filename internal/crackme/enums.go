package crackme

import (
	"fmt"
	"strings"
)

// Language is the programming language a crackme was written in.
type Language int

const (
	LanguageCOrCPlusPlus Language = iota
	LanguageAssembler
	LanguageJava
	LanguageVisualBasic
	LanguageBorlandDelphi
	LanguageTurboPascal
	LanguageDotNet
	LanguageOther
)

// Platform is the operating system a crackme targets.
type Platform int

const (
	PlatformDOS Platform = iota
	PlatformMacOSX
	PlatformMultiplatform
	PlatformUnixLinux
	PlatformWindows
	PlatformWindows2000XP
	PlatformWindows7
	PlatformWindowsVista
	PlatformOther
)

// alias maps a variant to its display name and every text that parses to it.
// The display name is always accepted.
type alias struct {
	display string
	texts   []string
}

var languageAliases = map[Language]alias{
	LanguageCOrCPlusPlus:  {"C/C++", []string{"cpp", "c", "c++"}},
	LanguageAssembler:     {"Assembler", []string{"asm"}},
	LanguageJava:          {"Java", nil},
	LanguageVisualBasic:   {"(Visual) Basic", []string{"vb", "Visual Basic"}},
	LanguageBorlandDelphi: {"Borland Delphi", []string{"delphi"}},
	LanguageTurboPascal:   {"Turbo Pascal", []string{"pascal"}},
	LanguageDotNet:        {".NET", []string{"dotnet"}},
	LanguageOther:         {"Unspecified/other", []string{"other"}},
}

var platformAliases = map[Platform]alias{
	PlatformDOS:           {"DOS", nil},
	PlatformMacOSX:        {"Mac OS X", []string{"macos", "osx"}},
	PlatformMultiplatform: {"Multiplatform", nil},
	PlatformUnixLinux:     {"Unix/Linux", []string{"linux", "unix", "Unix/linux etc."}},
	PlatformWindows:       {"Windows", nil},
	PlatformWindows2000XP: {"Windows 2000/XP only", []string{"xp"}},
	PlatformWindows7:      {"Windows 7 Only", []string{"win7"}},
	PlatformWindowsVista:  {"Windows Vista Only", []string{"vista"}},
	PlatformOther:         {"Unspecified/other", []string{"other"}},
}

func (a alias) matches(s string) bool {
	if strings.EqualFold(s, a.display) {
		return true
	}
	for _, t := range a.texts {
		if strings.EqualFold(s, t) {
			return true
		}
	}
	return false
}

// Languages lists every language in declaration order.
func Languages() []Language {
	out := make([]Language, 0, len(languageAliases))
	for l := LanguageCOrCPlusPlus; l <= LanguageOther; l++ {
		out = append(out, l)
	}
	return out
}

// Platforms lists every platform in declaration order.
func Platforms() []Platform {
	out := make([]Platform, 0, len(platformAliases))
	for p := PlatformDOS; p <= PlatformOther; p++ {
		out = append(out, p)
	}
	return out
}

func (l Language) String() string {
	if a, ok := languageAliases[l]; ok {
		return a.display
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

func (p Platform) String() string {
	if a, ok := platformAliases[p]; ok {
		return a.display
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// ParseLanguage matches s against the language alias table.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range Languages() {
		if languageAliases[l].matches(s) {
			return l, nil
		}
	}
	return LanguageOther, fmt.Errorf("unknown language %q", s)
}

// ParsePlatform matches s against the platform alias table.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	for _, p := range Platforms() {
		if platformAliases[p].matches(s) {
			return p, nil
		}
	}
	return PlatformOther, fmt.Errorf("unknown platform %q", s)
}

// LanguageFromText is ParseLanguage with unknown text mapped to LanguageOther.
func LanguageFromText(s string) Language {
	l, err := ParseLanguage(s)
	if err != nil {
		return LanguageOther
	}
	return l
}

// PlatformFromText is ParsePlatform with unknown text mapped to PlatformOther.
func PlatformFromText(s string) Platform {
	p, err := ParsePlatform(s)
	if err != nil {
		return PlatformOther
	}
	return p
}

func (l Language) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Language) UnmarshalText(b []byte) error {
	v, err := ParseLanguage(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (p Platform) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Platform) UnmarshalText(b []byte) error {
	v, err := ParsePlatform(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
