// Package conversation runs one user turn through the book assistant's stage
// graph and keeps the reply free of unverified book claims.
//
// The graph:
//
//	generate -> classify -+-> end                       (negative or off-topic)
//	                      +-> transform_query -+-> web_search -> verify_and_rewrite -> end
//	                      |                    +-> verify_and_rewrite -> end
//	                      +-> verify_and_rewrite -> end (query rewriting disabled)
//
// A turn never fails: stage errors and panics end in the fixed Apology, which
// is still recorded in the returned history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/extract"
	"github.com/randalmurphal/bookgraph/pkg/graph"
	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
	"github.com/randalmurphal/bookgraph/pkg/graph/observability"
	"github.com/randalmurphal/bookgraph/pkg/judge"
	"github.com/randalmurphal/bookgraph/pkg/llm"
	"github.com/randalmurphal/bookgraph/pkg/query"
	"github.com/randalmurphal/bookgraph/pkg/rewrite"
	"github.com/randalmurphal/bookgraph/pkg/websearch"
)

// Stage identifiers.
const (
	StageGenerate       = "generate"
	StageClassify       = "classify"
	StageTransformQuery = "transform_query"
	StageWebSearch      = "web_search"
	StageVerify         = "verify_and_rewrite"
)

// Default recommendation counts.
const (
	DefaultBookRecommendations   = 1
	DefaultAuthorRecommendations = 2
)

var (
	// ErrEmptyMessage is the input error for a blank user message.
	ErrEmptyMessage = errors.New("user message is empty")

	// ErrNoGenerator indicates Deps.Generator was not provided.
	ErrNoGenerator = errors.New("conversation: generator is required")

	// ErrNoCatalog indicates neither Deps.Catalog nor WithVerifier was provided.
	ErrNoCatalog = errors.New("conversation: catalog or verifier is required")
)

// Deps are the external collaborators of a turn. Search may be nil, in which
// case web augmentation yields nothing.
type Deps struct {
	Generator llm.Client
	Search    websearch.Searcher
	Catalog   catalog.Catalog
}

// Reply is the outcome of one turn.
type Reply struct {
	Text string

	// History is the caller's history plus the user message and Text.
	History []llm.Message

	RunID   string
	Path    []string
	Flags   judge.Flags
	Records []catalog.Record

	// Fallback is set when the turn failed and Text is the Apology.
	Fallback bool
}

// Engine is safe for concurrent use; every turn owns its state.
type Engine struct {
	gen        llm.Client
	augmenter  *websearch.Augmenter
	verifier   *catalog.Verifier
	rewriter   *rewrite.Rewriter
	classifier *judge.Classifier
	transform  *query.Transformer
	extractor  *extract.Extractor

	delim          extract.Delimiter
	bookCount      int
	authorCount    int
	queryRewrite   bool
	checkpoints    checkpoint.Store
	metricsEnabled bool
	tracing        bool
	metrics        observability.MetricsRecorder
	logger         *slog.Logger

	compiled *graph.Compiled[TurnState]
	sessions sessionLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its runs.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDelimiter sets the title convention used by the prompts, the extractor
// and the default rewriter. A rewriter given through WithRewriter keeps its
// own convention and takes precedence.
func WithDelimiter(d extract.Delimiter) Option {
	return func(e *Engine) { e.delim = d }
}

// WithRecommendations sets how many verified books book and author turns
// may carry.
func WithRecommendations(book, author int) Option {
	return func(e *Engine) {
		if book > 0 {
			e.bookCount = book
		}
		if author > 0 {
			e.authorCount = author
		}
	}
}

// WithQueryRewrite toggles the transform_query and web_search stages.
// Enabled by default.
func WithQueryRewrite(enabled bool) Option {
	return func(e *Engine) { e.queryRewrite = enabled }
}

// WithCheckpoints snapshots the turn state after every stage.
func WithCheckpoints(store checkpoint.Store) Option {
	return func(e *Engine) { e.checkpoints = store }
}

// WithMetrics records run, stage and claim metrics through the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) { e.metricsEnabled = enabled }
}

// WithTracing opens run and stage spans through the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(e *Engine) { e.tracing = enabled }
}

// WithVerifier replaces the verifier built from Deps.Catalog.
func WithVerifier(v *catalog.Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithRewriter replaces the default rewriter. Its delimiter becomes the engine's.
func WithRewriter(r *rewrite.Rewriter) Option {
	return func(e *Engine) { e.rewriter = r }
}

// WithClassifier replaces the default rule table.
func WithClassifier(c *judge.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithTransformer replaces the query transformer built from Deps.Generator.
func WithTransformer(t *query.Transformer) Option {
	return func(e *Engine) { e.transform = t }
}

// New wires the collaborators into a compiled conversation graph.
func New(deps Deps, opts ...Option) (*Engine, error) {
	if deps.Generator == nil {
		return nil, ErrNoGenerator
	}

	e := &Engine{
		gen:          deps.Generator,
		delim:        extract.Quote,
		bookCount:    DefaultBookRecommendations,
		authorCount:  DefaultAuthorRecommendations,
		queryRewrite: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.verifier == nil {
		if deps.Catalog == nil {
			return nil, ErrNoCatalog
		}
		e.verifier = catalog.NewVerifier(deps.Catalog, catalog.WithLogger(e.logger))
	}
	if e.rewriter == nil {
		e.rewriter = rewrite.New(rewrite.WithDelimiter(e.delim))
	}
	e.delim = e.rewriter.Delimiter()
	e.extractor = extract.New(e.delim)
	if e.classifier == nil {
		e.classifier = judge.Default()
	}
	if e.transform == nil {
		e.transform = query.NewTransformer(e.gen, query.WithLogger(e.logger))
	}
	e.augmenter = websearch.NewAugmenter(deps.Search, e.logger)

	e.metrics = observability.NoopMetrics{}
	if e.metricsEnabled {
		e.metrics = observability.NewMetricsRecorder()
	}

	compiled, err := e.build().Compile()
	if err != nil {
		return nil, fmt.Errorf("compile conversation graph: %w", err)
	}
	e.compiled = compiled
	return e, nil
}

func (e *Engine) build() *graph.Graph[TurnState] {
	return graph.New[TurnState]().
		AddStage(StageGenerate, untilFinished(e.generate)).
		AddStage(StageClassify, untilFinished(e.classify)).
		AddStage(StageTransformQuery, untilFinished(e.transformQuery)).
		AddStage(StageWebSearch, untilFinished(e.webSearch)).
		AddStage(StageVerify, untilFinished(e.verifyAndRewrite)).
		AddEdge(StageGenerate, StageClassify).
		AddRoute(StageClassify, e.afterClassify).
		AddRoute(StageTransformQuery, afterTransform).
		AddEdge(StageWebSearch, StageVerify).
		AddEdge(StageVerify, graph.End).
		SetEntry(StageGenerate)
}

// untilFinished turns a stage into a no-op once the final reply is set.
func untilFinished(fn graph.StageFunc[TurnState]) graph.StageFunc[TurnState] {
	return func(ctx graph.Context, s TurnState) (TurnState, error) {
		if s.Finished {
			return s, nil
		}
		return fn(ctx, s)
	}
}

// afterClassify: negative beats author beats book.
func (e *Engine) afterClassify(_ graph.Context, s TurnState) string {
	switch {
	case s.Finished, s.Flags.Negative:
		return graph.End
	case s.Flags.Author, s.Flags.Book:
		if e.queryRewrite {
			return StageTransformQuery
		}
		return StageVerify
	default:
		return graph.End
	}
}

// afterTransform skips web search when there is no author to search for.
func afterTransform(_ graph.Context, s TurnState) string {
	switch {
	case s.Finished:
		return graph.End
	case s.Author != "":
		return StageWebSearch
	default:
		return StageVerify
	}
}

// HandleTurn runs one turn. history is not modified. The only error is
// ErrEmptyMessage; every other failure becomes the Apology reply.
func (e *Engine) HandleTurn(ctx context.Context, message string, history []llm.Message) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	runID := uuid.NewString()
	messages := append(slices.Clone(history), llm.UserMessage(message))
	state := TurnState{Messages: slices.Clone(messages), Question: message}

	var path []string
	gctx := graph.NewContext(ctx, graph.WithLogger(e.logger), graph.WithContextRunID(runID))
	opts := []graph.RunOption{
		graph.WithRunID(runID),
		graph.WithRunLogger(e.logger),
		graph.WithPathRecorder(&path),
		graph.WithMetrics(e.metricsEnabled),
		graph.WithTracing(e.tracing),
	}
	if e.checkpoints != nil {
		opts = append(opts, graph.WithCheckpointing(e.checkpoints))
	}

	out, err := e.compiled.Run(gctx, state, opts...)

	reply := Reply{RunID: runID, Path: path, Flags: out.Flags, Records: out.Records}
	switch {
	case err != nil:
		e.logger.Error("turn failed, replying with apology",
			slog.String("run_id", runID),
			slog.String("stage_id", graph.FailedStage(err)),
			slog.String("error", err.Error()),
		)
		reply.Text = Apology
		reply.Fallback = true
		reply.Records = nil
	case out.Finished:
		reply.Text = out.Final
	default:
		reply.Text = e.rewriter.Scrub(out.Draft)
		if reply.Text == "" {
			reply.Text = Clarification
		}
	}

	reply.History = append(messages, llm.AssistantMessage(reply.Text))
	return reply, nil
}
