package conversation

import (
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/bookgraph/pkg/catalog"
	"github.com/randalmurphal/bookgraph/pkg/graph"
	"github.com/randalmurphal/bookgraph/pkg/graph/observability"
	"github.com/randalmurphal/bookgraph/pkg/llm"
)

// ErrEmptyDraft is returned by the generate stage when the generator
// answered with nothing.
var ErrEmptyDraft = errors.New("generator returned an empty draft")

// draftReply is the structured output requested from the generator.
type draftReply struct {
	Reply string `json:"reply" jsonschema:"description=The reply to show the user"`
}

var draftSchema = llm.SchemaFor[draftReply]()

// draftEnvelope tells a missing reply field apart from an empty one.
type draftEnvelope struct {
	Reply *string `json:"reply"`
}

// generate drafts a reply to the conversation so far.
func (e *Engine) generate(ctx graph.Context, s TurnState) (TurnState, error) {
	resp, err := e.gen.Complete(ctx, llm.Request{
		System:     generateInstruction(e.delim),
		Messages:   s.Messages,
		Schema:     draftSchema,
		SchemaName: "reply",
	})
	if err != nil {
		return s, err
	}

	// Prose that merely contains some other JSON object is still prose.
	draft := strings.TrimSpace(resp.Content)
	if structured, err := llm.DecodeJSON[draftEnvelope](resp.Content); err == nil && structured.Reply != nil {
		draft = strings.TrimSpace(*structured.Reply)
	} else {
		ctx.Logger().Debug("generator ignored reply schema, using raw text")
	}
	if draft == "" {
		return s, ErrEmptyDraft
	}

	s.Draft = draft
	return s, nil
}

func (e *Engine) classify(ctx graph.Context, s TurnState) (TurnState, error) {
	s.Flags = e.classifier.Classify(s.Draft)
	switch {
	case s.Flags.Author:
		s.Recommend = e.authorCount
	case s.Flags.Book:
		s.Recommend = e.bookCount
	}
	ctx.Logger().Debug("draft classified",
		slog.Bool("book", s.Flags.Book),
		slog.Bool("author", s.Flags.Author),
		slog.Bool("negative", s.Flags.Negative),
	)
	return s, nil
}

// transformQuery never fails; a generator error leaves the original question.
func (e *Engine) transformQuery(ctx graph.Context, s TurnState) (TurnState, error) {
	res, _ := e.transform.Transform(ctx, s.Question)
	s.RewrittenQuery = res.Query
	s.Author = res.Author
	return s, nil
}

func (e *Engine) webSearch(ctx graph.Context, s TurnState) (TurnState, error) {
	docs := e.augmenter.Augment(ctx, s.RewrittenQuery)
	s.Documents = append(s.Documents, docs...)
	ctx.Logger().Debug("web search appended documents", slog.Int("count", len(docs)))
	return s, nil
}

// verifyAndRewrite confirms every candidate title and produces the final
// reply. On the query path it first asks for a recommendation draft; if that
// fails the classified draft is verified instead.
func (e *Engine) verifyAndRewrite(ctx graph.Context, s TurnState) (TurnState, error) {
	if s.RewrittenQuery != "" {
		if draft, ok := e.recommend(ctx, s); ok {
			s.Draft = draft
		}
	}

	var opts []catalog.VerifyOption
	if s.Author != "" {
		opts = append(opts, catalog.WithAuthorHint(s.Author))
	}
	for _, candidate := range e.extractor.Titles(s.Draft) {
		rec, ok := e.verifier.Confirm(ctx, candidate, opts...)
		if !ok {
			s.Rejected = append(s.Rejected, candidate)
			continue
		}
		s.Records = append(s.Records, rec)
	}

	e.metrics.RecordClaims(ctx, len(s.Records), len(s.Rejected))
	observability.AddSpanEvent(ctx, "claims.verified",
		attribute.Int("verified", len(s.Records)),
		attribute.Int("rejected", len(s.Rejected)),
	)
	ctx.Logger().Info("claims verified",
		slog.Int("verified", len(s.Records)),
		slog.Int("rejected", len(s.Rejected)),
	)

	s.finish(e.rewriter.Rewrite(s.Draft, s.Records, s.Recommend))
	return s, nil
}

func (e *Engine) recommend(ctx graph.Context, s TurnState) (string, bool) {
	n := max(s.Recommend, 1)
	resp, err := e.gen.Complete(ctx, llm.Request{
		System:   recommendInstruction(n, e.delim),
		Messages: []llm.Message{llm.UserMessage(recommendPrompt(s.RewrittenQuery, s.Documents))},
	})
	if err != nil {
		ctx.Logger().Warn("recommendation draft failed, verifying reply draft",
			slog.String("error", err.Error()))
		return "", false
	}
	draft := strings.TrimSpace(resp.Content)
	if draft == "" {
		return "", false
	}
	return draft, true
}
