// Package query rewrites a user question into a retrieval-ready query and
// extracts a probable author name from it.
package query

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/randalmurphal/bookgraph/pkg/llm"
)

// Instruction is the fixed system instruction for query rewriting.
const Instruction = `당신은 사용자의 질문을 도서 검색에 최적화된 질문으로 다시 쓰는 도우미입니다.
- 질문의 의도를 그대로 유지하세요.
- 검색에 유리하도록 핵심 키워드를 분명히 드러내세요.
- 막연한 주제보다 구체적인 작가, 작품, 장르 이름을 우선하세요.
다시 쓴 질문 한 문장만 출력하세요.`

// ErrEmptyRewrite is returned when the generator answered with nothing usable.
var ErrEmptyRewrite = errors.New("query rewrite returned empty text")

// Result is the outcome of Transform.
type Result struct {
	Query     string `json:"query"`
	Author    string `json:"author,omitempty"`
	Rewritten bool   `json:"rewritten"`
}

// Transformer rewrites questions through a text generator.
type Transformer struct {
	gen    llm.Client
	logger *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger for rewrite failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransformer rewrites through gen.
func NewTransformer(gen llm.Client, opts ...Option) *Transformer {
	t := &Transformer{gen: gen, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform rewrites question. On generator failure it falls back to the
// original question and returns the error alongside a usable Result.
// The author is looked up on the rewritten query first, then on question.
func (t *Transformer) Transform(ctx context.Context, question string) (Result, error) {
	res := Result{Query: question}

	rewritten, err := t.rewrite(ctx, question)
	if err != nil {
		t.logger.Warn("query rewrite failed, using original question", slog.String("error", err.Error()))
	} else {
		res.Query = rewritten
		res.Rewritten = true
	}

	if author, ok := ExtractAuthor(res.Query); ok {
		res.Author = author
	} else if author, ok := ExtractAuthor(question); ok {
		res.Author = author
	}
	return res, err
}

func (t *Transformer) rewrite(ctx context.Context, question string) (string, error) {
	resp, err := t.gen.Complete(ctx, llm.Request{
		System:      Instruction,
		Messages:    []llm.Message{llm.UserMessage(question)},
		Temperature: 0.1,
		MaxTokens:   256,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Content)
	out = strings.Trim(out, "\"'")
	if out == "" {
		return "", ErrEmptyRewrite
	}
	return out, nil
}

var authorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([가-힣]{2,5})\s?(?:작가|저자|의)`),
	regexp.MustCompile(`\bby ([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})`),
}

// ExtractAuthor finds a probable author name: a short Hangul run followed by
// an authorship marker, or "by" followed by capitalized words. It is a hint;
// no match is a normal outcome.
func ExtractAuthor(text string) (string, bool) {
	for _, p := range authorPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
