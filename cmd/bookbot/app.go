package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/config"
	"github.com/randalmurphal/bookgraph/pkg/conversation"
	"github.com/randalmurphal/bookgraph/pkg/extract"
	"github.com/randalmurphal/bookgraph/pkg/fault"
	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
	"github.com/randalmurphal/bookgraph/pkg/llm"
	"github.com/randalmurphal/bookgraph/pkg/rewrite"
	"github.com/randalmurphal/bookgraph/pkg/websearch"
)

// app holds everything a turn command needs.
type app struct {
	engine      *conversation.Engine
	sessions    conversation.SessionStore
	checkpoints checkpoint.Store
	closers     []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, s config.Settings, logger *slog.Logger) (*app, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	a := &app{}

	gen, err := newGenerator(ctx, s.LLM)
	if err != nil {
		return nil, err
	}
	gen = llm.WithRetry(gen, fault.DefaultRetry, logger)

	var searcher websearch.Searcher
	if s.Search.APIKey != "" {
		tavily, err := websearch.NewTavily(s.Search.APIKey, websearch.WithMaxResults(s.Search.MaxResults))
		if err != nil {
			return nil, err
		}
		searcher = tavily
	} else {
		logger.Info("web search disabled, TAVILY_API_KEY not set")
	}

	naver, err := catalog.NewNaver(s.Catalog.ClientID, s.Catalog.ClientSecret)
	if err != nil {
		return nil, err
	}
	locale, _ := catalog.LocaleByName(s.Catalog.Locale)
	verifier := catalog.NewVerifier(naver,
		catalog.WithLocale(locale),
		catalog.WithMinScore(s.Catalog.MinScore),
		catalog.WithPace(s.Catalog.Pace),
		catalog.WithMaxResults(s.Catalog.MaxResults),
		catalog.WithLogger(logger),
	)

	delim, _ := extract.ByName(s.Conversation.Delimiter)
	rewriter := rewrite.New(
		rewrite.WithDelimiter(delim),
		rewrite.WithSynopsisSentences(s.Conversation.SynopsisSentences),
	)

	if a.checkpoints, err = openCheckpoints(s.Checkpoint.Path); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.checkpoints.Close)

	if a.sessions, err = openSessions(ctx, s.Session, a); err != nil {
		a.Close()
		return nil, err
	}

	a.engine, err = conversation.New(
		conversation.Deps{Generator: gen, Search: searcher, Catalog: naver},
		conversation.WithLogger(logger),
		conversation.WithVerifier(verifier),
		conversation.WithRewriter(rewriter),
		conversation.WithRecommendations(s.Conversation.BookRecommendations, s.Conversation.AuthorRecommendations),
		conversation.WithQueryRewrite(s.Conversation.QueryRewrite),
		conversation.WithCheckpoints(a.checkpoints),
		conversation.WithMetrics(true),
		conversation.WithTracing(s.Telemetry.OTLPEndpoint != ""),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newGenerator(ctx context.Context, s config.LLMSettings) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithModel(s.Model),
		llm.WithMaxTokens(s.MaxTokens),
		llm.WithTemperature(s.Temperature),
	}
	switch s.Provider {
	case "gemini":
		return llm.NewGemini(ctx, s.APIKey, "", opts...)
	case "openai":
		return llm.NewOpenAI(s.APIKey, opts)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", s.Provider)
	}
}

// openCheckpoints uses SQLite when a path is configured, memory otherwise.
func openCheckpoints(path string) (checkpoint.Store, error) {
	if path == "" {
		return checkpoint.NewMemoryStore(), nil
	}
	store, err := checkpoint.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	return store, nil
}

func openSessions(ctx context.Context, s config.SessionSettings, a *app) (conversation.SessionStore, error) {
	if s.Backend != "redis" {
		return conversation.NewMemorySessionStore(s.TTL, 0), nil
	}

	opt, err := redis.ParseURL(s.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return conversation.NewRedisSessionStore(client, "bookbot:session:", s.TTL), nil
}
