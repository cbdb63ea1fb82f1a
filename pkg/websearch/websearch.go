// Package websearch gathers supporting snippets from a web-search service.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Searcher is the web-search collaborator. Each returned item is either a
// JSON string or a JSON object with a "content" string.
type Searcher interface {
	Search(ctx context.Context, query string) ([]json.RawMessage, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string) ([]json.RawMessage, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	return f(ctx, query)
}

// Normalize turns raw results into plain snippets. Strings and {content}
// objects are accepted item by item; any other shape discards the whole
// batch. Blank snippets are dropped.
func Normalize(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, raw := range items {
		text, ok := snippet(raw)
		if !ok {
			return []string{}
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func snippet(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{':
		var obj struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Content == nil {
			return "", false
		}
		return *obj.Content, true
	}
	return "", false
}

// Augmenter runs one search per call and never fails.
type Augmenter struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewAugmenter wraps searcher. A nil searcher yields no snippets.
func NewAugmenter(searcher Searcher, logger *slog.Logger) *Augmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{searcher: searcher, logger: logger}
}

// Augment returns snippets for query. Empty queries, search failures and
// malformed results all yield an empty list.
func (a *Augmenter) Augment(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" || a.searcher == nil {
		return []string{}
	}

	items, err := a.searcher.Search(ctx, query)
	if err != nil {
		a.logger.Warn("web search failed", slog.String("query", query), slog.String("error", err.Error()))
		return []string{}
	}

	snippets := Normalize(items)
	if len(snippets) == 0 && len(items) > 0 {
		a.logger.Warn("web search returned unexpected result shape", slog.Int("items", len(items)))
	}
	return snippets
}
