package rewrite

import (
	"strings"
	"unicode"
)

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '…':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '」', '』', '”', '’':
		return true
	}
	return false
}

// Synopsis returns the first n sentences of text with whitespace collapsed.
// A sentence ends at a run of terminators (optionally followed by closing
// quotes or brackets) that is followed by whitespace or the end of the text,
// so "3.5" or "a.k.a" do not split. n <= 0 returns the whole text.
func Synopsis(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || text == "" {
		return text
	}

	runes := []rune(text)
	count := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isTerminator(runes[j]) {
			j++
		}
		for j < len(runes) && isCloser(runes[j]) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		count++
		if count == n {
			return string(runes[:j])
		}
		i = j - 1
	}
	return text
}
