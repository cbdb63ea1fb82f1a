package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Locale is the script a confirmed title is expected to be written in.
type Locale struct {
	Name    string
	Scripts []*unicode.RangeTable
}

var (
	Korean   = Locale{Name: "ko", Scripts: []*unicode.RangeTable{unicode.Hangul}}
	Japanese = Locale{Name: "ja", Scripts: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han}}
	English  = Locale{Name: "en", Scripts: []*unicode.RangeTable{unicode.Latin}}
)

// LocaleByName returns the locale for "ko", "ja" or "en".
func LocaleByName(name string) (Locale, bool) {
	switch strings.ToLower(name) {
	case "ko", "":
		return Korean, true
	case "ja":
		return Japanese, true
	case "en":
		return English, true
	}
	return Korean, false
}

// Matches reports whether at least half of the letters in s, and at least
// one, belong to the locale's scripts.
func (l Locale) Matches(s string) bool {
	letters, native := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsOneOf(l.Scripts, r) {
			native++
		}
	}
	return native > 0 && native*2 >= letters
}

// Score weights.
const (
	TitleScriptPoints     = 3
	PublisherScriptPoints = 2
	TitleContainsPoints   = 2
	AuthorContainsPoints  = 2

	MaxScore = TitleScriptPoints + PublisherScriptPoints + TitleContainsPoints + AuthorContainsPoints
)

// fold normalizes for comparison. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Score rates how well item answers candidate.
func Score(candidate string, item Item, locale Locale) int {
	score := 0
	if locale.Matches(item.Title) {
		score += TitleScriptPoints
	}
	if locale.Matches(item.Publisher) {
		score += PublisherScriptPoints
	}

	q := fold(candidate)
	if q == "" {
		return score
	}
	if strings.Contains(fold(item.Title), q) {
		score += TitleContainsPoints
	}
	if strings.Contains(fold(item.Author), q) {
		score += AuthorContainsPoints
	}
	return score
}
