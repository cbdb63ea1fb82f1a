package catalog

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// DefaultMinScore is the relevance threshold: a title in the locale's
// script that contains the candidate, from a publisher in that script (7),
// clears it; a script match alone (5) does not.
const DefaultMinScore = 6

// Verifier confirms candidates against a Catalog. It is safe for concurrent
// use; all of its catalog calls pass through one pacing gate.
type Verifier struct {
	cat        Catalog
	locale     Locale
	minScore   int
	maxResults int
	logger     *slog.Logger
	gate       *pacer
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithLocale sets the script expected in titles and publishers. Default: Korean.
func WithLocale(l Locale) VerifierOption {
	return func(v *Verifier) { v.locale = l }
}

// WithMinScore sets the relevance threshold. Default: 6.
func WithMinScore(n int) VerifierOption {
	return func(v *Verifier) { v.minScore = n }
}

// WithPace sets the minimum gap between catalog calls. Default 150ms.
func WithPace(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.gate = newPacer(d) }
}

// WithMaxResults caps how many items each catalog call asks for. Default 10.
func WithMaxResults(n int) VerifierOption {
	return func(v *Verifier) {
		if n > 0 {
			v.maxResults = n
		}
	}
}

// WithLogger sets the logger for lookup failures.
func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier verifies candidates against cat.
func NewVerifier(cat Catalog, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		cat:        cat,
		locale:     Korean,
		minScore:   DefaultMinScore,
		maxResults: 10,
		logger:     slog.Default(),
		gate:       newPacer(150 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type verifyConfig struct {
	authorHint string
}

// VerifyOption adjusts a single lookup.
type VerifyOption func(*verifyConfig)

// WithAuthorHint ranks items by this author first among equal scores.
func WithAuthorHint(author string) VerifyOption {
	return func(c *verifyConfig) { c.authorHint = strings.TrimSpace(author) }
}

// Verify returns up to max records for candidate, best first, or nil when
// nothing clears the threshold. max <= 0 returns every scored record.
func (v *Verifier) Verify(ctx context.Context, candidate string, max int, opts ...VerifyOption) []Record {
	var cfg verifyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil
	}
	items := v.lookup(ctx, candidate)
	if len(items) == 0 {
		return nil
	}

	records := make([]Record, len(items))
	for i, it := range items {
		records[i] = Record{Item: it, Candidate: candidate, Score: Score(candidate, it, v.locale)}
	}

	hint := fold(cfg.authorHint)
	byHint := func(r Record) int {
		if hint != "" && strings.Contains(fold(r.Author), hint) {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(byHint(a), byHint(b))
	})

	if records[0].Score < v.minScore {
		v.logger.Debug("catalog match below threshold",
			slog.String("candidate", candidate),
			slog.Int("top_score", records[0].Score),
			slog.Int("min_score", v.minScore),
		)
		return nil
	}
	if max > 0 && len(records) > max {
		records = records[:max]
	}
	return records
}

// Confirm returns the best record for candidate.
func (v *Verifier) Confirm(ctx context.Context, candidate string, opts ...VerifyOption) (Record, bool) {
	records := v.Verify(ctx, candidate, 1, opts...)
	if len(records) == 0 {
		return Record{}, false
	}
	return records[0], true
}

// lookup tries a title search, then a keyword search. Errors count as no
// results.
func (v *Verifier) lookup(ctx context.Context, candidate string) []Item {
	items, err := v.call(ctx, candidate, v.cat.SearchTitle)
	if err != nil {
		v.logger.Warn("catalog title search failed",
			slog.String("candidate", candidate), slog.String("error", err.Error()))
	}
	if len(items) > 0 {
		return items
	}
	if ctx.Err() != nil {
		return nil
	}

	items, err = v.call(ctx, candidate, v.cat.Search)
	if err != nil {
		v.logger.Warn("catalog keyword search failed",
			slog.String("candidate", candidate), slog.String("error", err.Error()))
		return nil
	}
	return items
}

func (v *Verifier) call(ctx context.Context, q string, fn func(context.Context, string, int) ([]Item, error)) ([]Item, error) {
	var items []Item
	err := v.gate.do(ctx, func() error {
		var err error
		items, err = fn(ctx, q, v.maxResults)
		return err
	})
	return items, err
}
