// Package judge tags a draft reply with the signals that steer the
// conversation graph.
//
// Classification is a rule table: each Rule maps a set of keywords and
// patterns to one Flag. A flag is set when any of its rules matches. The
// result depends only on the text.
package judge

import (
	"regexp"
	"strings"
)

// Flag is one classification signal.
type Flag int

const (
	FlagBook Flag = iota
	FlagAuthor
	FlagNegative
)

// String returns the flag's wire name.
func (f Flag) String() string {
	switch f {
	case FlagBook:
		return "is_book_question"
	case FlagAuthor:
		return "is_author_question"
	case FlagNegative:
		return "is_negative"
	default:
		return "unknown"
	}
}

// Flags is the classification of one draft.
type Flags struct {
	Book     bool `json:"is_book_question"`
	Author   bool `json:"is_author_question"`
	Negative bool `json:"is_negative"`
}

func (f *Flags) set(flag Flag) {
	switch flag {
	case FlagBook:
		f.Book = true
	case FlagAuthor:
		f.Author = true
	case FlagNegative:
		f.Negative = true
	}
}

// Rule sets Flag when any keyword occurs (case-insensitively) or any pattern
// matches.
type Rule struct {
	Flag     Flag
	Keywords []string
	Patterns []*regexp.Regexp
}

func (r Rule) matches(folded, raw string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(folded, strings.ToLower(kw)) {
			return true
		}
	}
	for _, p := range r.Patterns {
		if p.MatchString(raw) {
			return true
		}
	}
	return false
}

// Classifier applies a fixed rule table. It is immutable and safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier copies rules into a Classifier.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Default returns a Classifier over DefaultRules.
func Default() *Classifier {
	return defaultClassifier
}

// Classify computes each flag independently.
func (c *Classifier) Classify(text string) Flags {
	var flags Flags
	folded := strings.ToLower(text)
	for _, r := range c.rules {
		if r.matches(folded, text) {
			flags.set(r.Flag)
		}
	}
	return flags
}

// Classify uses the default rule table.
func Classify(text string) Flags {
	return defaultClassifier.Classify(text)
}
