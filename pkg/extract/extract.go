// Package extract finds delimiter-wrapped candidate titles in generated text.
package extract

import (
	"regexp"
	"strings"
)

// Delimiter is a marker pair wrapping an entity span. The generation prompt
// and the extractor must agree on one convention per response.
type Delimiter struct {
	Name  string
	Open  string
	Close string
}

var (
	Quote     = Delimiter{Name: "quote", Open: `"`, Close: `"`}
	Corner    = Delimiter{Name: "corner", Open: "『", Close: "』"}
	Bracket   = Delimiter{Name: "bracket", Open: "[", Close: "]"}
	Guillemet = Delimiter{Name: "guillemet", Open: "«", Close: "»"}
)

// ByName returns the convention named name, or Quote and false.
func ByName(name string) (Delimiter, bool) {
	for _, d := range []Delimiter{Quote, Corner, Bracket, Guillemet} {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Quote, false
}

// Wrap surrounds s with the delimiter.
func (d Delimiter) Wrap(s string) string {
	return d.Open + s + d.Close
}

// Strip removes every delimiter character from s.
func (d Delimiter) Strip(s string) string {
	s = strings.ReplaceAll(s, d.Open, "")
	if d.Close != d.Open {
		s = strings.ReplaceAll(s, d.Close, "")
	}
	return s
}

// Pattern matches one wrapped span; group 1 is the inner text. Spans do not
// cross line breaks.
func (d Delimiter) Pattern() *regexp.Regexp {
	open, close := regexp.QuoteMeta(d.Open), regexp.QuoteMeta(d.Close)
	var inner string
	if len([]rune(d.Close)) == 1 {
		inner = `[^` + close + `\n]+`
	} else {
		inner = `[^\n]+?`
	}
	return regexp.MustCompile(open + `(` + inner + `)` + close)
}

// Titles extracts wrapped spans from text in one scan: trimmed, empty spans
// skipped, duplicates removed keeping first-seen order.
func Titles(text string, d Delimiter) []string {
	return titles(text, d.Pattern())
}

func titles(text string, re *regexp.Regexp) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		t := strings.TrimSpace(m[1])
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Extractor caches the compiled pattern of one convention.
type Extractor struct {
	delim Delimiter
	re    *regexp.Regexp
}

// New returns an Extractor for d with its pattern compiled once.
func New(d Delimiter) *Extractor {
	return &Extractor{delim: d, re: d.Pattern()}
}

// Delimiter returns the convention in use.
func (e *Extractor) Delimiter() Delimiter { return e.delim }

// Titles is Titles(text, e.Delimiter()) without recompiling.
func (e *Extractor) Titles(text string) []string {
	return titles(text, e.re)
}
