// Package rewrite turns a generated draft into the reply shown to the user.
//
// Lines of the draft that name a book (a delimiter-wrapped span) are kept
// only as catalog-backed blocks; prose lines pass through. A draft whose
// books were all rejected degrades to a fixed not-found message.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/extract"
)

// NotFoundMessage replaces a reply whose candidates all failed verification.
const NotFoundMessage = "질문한 내용과 관련된 책을 찾을 수 없습니다. 조금 더 구체적으로 질문해 주세요."

// DefaultSynopsisSentences is how much of a catalog description a block quotes.
const DefaultSynopsisSentences = 2

// Labels name the fields of a splice block.
type Labels struct {
	Image     string
	Title     string
	Author    string
	Publisher string
	Synopsis  string
	Link      string
}

var DefaultLabels = Labels{
	Image:     "책 이미지",
	Title:     "책 제목",
	Author:    "작가",
	Publisher: "출판사",
	Synopsis:  "추천 이유",
	Link:      "구매 링크",
}

// Rewriter is immutable after New and safe for concurrent use.
type Rewriter struct {
	ext       *extract.Extractor
	sentences int
	labels    Labels
	notFound  string
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithDelimiter sets the entity convention. It must match the one the
// generator was told to use.
func WithDelimiter(d extract.Delimiter) Option {
	return func(r *Rewriter) { r.ext = extract.New(d) }
}

// WithSynopsisSentences sets how many sentences of the description a block shows.
func WithSynopsisSentences(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.sentences = n
		}
	}
}

// WithLabels replaces the block field labels.
func WithLabels(l Labels) Option {
	return func(r *Rewriter) { r.labels = l }
}

// WithNotFoundMessage replaces NotFoundMessage.
func WithNotFoundMessage(msg string) Option {
	return func(r *Rewriter) {
		if strings.TrimSpace(msg) != "" {
			r.notFound = msg
		}
	}
}

// New returns a Rewriter using the Quote convention unless configured otherwise.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{
		ext:       extract.New(extract.Quote),
		sentences: DefaultSynopsisSentences,
		labels:    DefaultLabels,
		notFound:  NotFoundMessage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Delimiter returns the convention the rewriter recognizes.
func (r *Rewriter) Delimiter() extract.Delimiter { return r.ext.Delimiter() }

// NotFound returns the degradation message.
func (r *Rewriter) NotFound() string { return r.notFound }

// Rewrite filters draft against records and splices a numbered block for
// each verified candidate at the line where it first appears, at most limit
// blocks (0 means no limit). Records are matched to candidates by
// Record.Candidate; the first record per candidate wins.
//
// A draft with no candidates is returned unchanged. A draft whose candidates
// have no records becomes the not-found message.
func (r *Rewriter) Rewrite(draft string, records []catalog.Record, limit int) string {
	if len(r.ext.Titles(draft)) == 0 {
		return strings.TrimSpace(draft)
	}

	verified := make(map[string]catalog.Record, len(records))
	for _, rec := range records {
		if _, ok := verified[rec.Candidate]; !ok {
			verified[rec.Candidate] = rec
		}
	}

	var (
		out     []string
		blocks  int
		spliced = map[string]bool{}
	)
	for _, line := range strings.Split(draft, "\n") {
		titles := r.ext.Titles(line)
		if len(titles) == 0 {
			out = append(out, line)
			continue
		}
		for _, t := range titles {
			rec, ok := verified[t]
			if !ok || (limit > 0 && blocks >= limit) {
				continue
			}
			key := recordKey(rec)
			if spliced[t] || spliced[key] {
				continue
			}
			spliced[t], spliced[key] = true, true
			blocks++
			out = append(out, r.block(blocks, rec))
		}
	}

	if blocks == 0 {
		return r.notFound
	}
	return tidy(out)
}

// Scrub drops every line naming an entity. It is used where no records
// exist at all, so nothing unverified reaches the user.
func (r *Rewriter) Scrub(draft string) string {
	var out []string
	for _, line := range strings.Split(draft, "\n") {
		if len(r.ext.Titles(line)) == 0 {
			out = append(out, line)
		}
	}
	return tidy(out)
}

func (r *Rewriter) block(n int, rec catalog.Record) string {
	d := r.ext.Delimiter()
	clean := func(s string) string {
		return strings.Join(strings.Fields(d.Strip(s)), " ")
	}

	parts := []string{fmt.Sprintf("%d.", n)}
	field := func(label, value string) {
		if value = clean(value); value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	field(r.labels.Image, rec.Image)
	title := clean(rec.Title)
	if title == "" {
		title = clean(rec.Candidate)
	}
	parts = append(parts, r.labels.Title+": "+d.Wrap(title))
	field(r.labels.Author, rec.Author)
	field(r.labels.Publisher, rec.Publisher)
	field(r.labels.Synopsis, Synopsis(rec.Description, r.sentences))
	field(r.labels.Link, rec.Link)
	return strings.Join(parts, " ")
}

func recordKey(rec catalog.Record) string {
	if rec.ISBN != "" {
		return "isbn:" + rec.ISBN
	}
	if rec.Link != "" {
		return "link:" + rec.Link
	}
	return "title:" + rec.Title + "\x00" + rec.Author
}

// tidy joins lines, collapsing runs of blank lines and trimming the ends.
func tidy(lines []string) string {
	var b strings.Builder
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			blank = true
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}
