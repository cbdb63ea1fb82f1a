package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/llm"
	"github.com/randalmurphal/bookgraph/pkg/query"
	"github.com/randalmurphal/bookgraph/pkg/websearch"
)

var (
	memoirItem = catalog.Item{
		Title:       "살인자의 기억법",
		Author:      "김영하",
		Publisher:   "문학동네",
		Description: "알츠하이머에 걸린 연쇄살인범의 이야기. 기억이 사라져 간다. 세 번째 문장.",
		Image:       "https://img.example/memoir.jpg",
		Link:        "https://book.example/memoir",
		ISBN:        "9788954621397",
	}
	travelItem = catalog.Item{
		Title:       "여행의 이유",
		Author:      "김영하",
		Publisher:   "문학동네",
		Description: "작가의 여행 산문.",
		Link:        "https://book.example/travel",
		ISBN:        "9788954655972",
	}
)

// script answers generator requests by kind: the reply draft (requested with
// a schema), the query rewrite, and the recommendation draft.
type script struct {
	draft     string
	rewrite   string
	recommend string
	fail      map[string]error
}

func kindOf(req llm.Request) string {
	switch {
	case req.System == query.Instruction:
		return "rewrite"
	case req.Schema != nil:
		return "generate"
	default:
		return "recommend"
	}
}

func (s script) client() *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		kind := kindOf(req)
		if err := s.fail[kind]; err != nil {
			return nil, err
		}
		var content string
		switch kind {
		case "generate":
			content = s.draft
		case "rewrite":
			content = s.rewrite
		default:
			content = s.recommend
		}
		return &llm.Response{Content: content, Model: "scripted"}, nil
	})
}

func callsOf(m *llm.MockClient, kind string) []llm.Request {
	var out []llm.Request
	for _, c := range m.Calls {
		if kindOf(c) == kind {
			out = append(out, c)
		}
	}
	return out
}

// countingCatalog records lookups made through it.
type countingCatalog struct {
	catalog.Catalog
	titles   atomic.Int32
	keywords atomic.Int32
}

func (c *countingCatalog) SearchTitle(ctx context.Context, title string, max int) ([]catalog.Item, error) {
	c.titles.Add(1)
	return c.Catalog.SearchTitle(ctx, title, max)
}

func (c *countingCatalog) Search(ctx context.Context, keyword string, max int) ([]catalog.Item, error) {
	c.keywords.Add(1)
	return c.Catalog.Search(ctx, keyword, max)
}

func (c *countingCatalog) total() int {
	return int(c.titles.Load() + c.keywords.Load())
}

type panicCatalog struct{}

func (panicCatalog) SearchTitle(context.Context, string, int) ([]catalog.Item, error) {
	panic("catalog exploded")
}

func (panicCatalog) Search(context.Context, string, int) ([]catalog.Item, error) {
	panic("catalog exploded")
}

func staticSearch(calls *atomic.Int32, items ...string) websearch.Searcher {
	return websearch.SearcherFunc(func(context.Context, string) ([]json.RawMessage, error) {
		calls.Add(1)
		out := make([]json.RawMessage, len(items))
		for i, it := range items {
			out[i] = json.RawMessage(it)
		}
		return out, nil
	})
}

var errGenerator = errors.New("generator unavailable")

// newEngine builds an engine whose verifier does not pace.
func newEngine(t *testing.T, deps Deps, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithVerifier(catalog.NewVerifier(deps.Catalog, catalog.WithPace(0)))}, opts...)
	e, err := New(deps, opts...)
	require.NoError(t, err)
	return e
}
