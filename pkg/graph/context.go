package graph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context is what stages and routers receive: a context.Context plus the run's
// logger and identifiers.
type Context interface {
	context.Context

	// Logger never returns nil. Inside a stage it carries run_id and stage_id.
	Logger() *slog.Logger

	// RunID identifies the run. Generated when not configured.
	RunID() string

	// StageID is the stage being executed, or "" outside a stage.
	StageID() string
}

type runContext struct {
	context.Context

	logger  *slog.Logger
	runID   string
	stageID string
}

// Logger implements Context.
func (c *runContext) Logger() *slog.Logger { return c.logger }

// RunID implements Context.
func (c *runContext) RunID() string { return c.runID }

// StageID implements Context.
func (c *runContext) StageID() string { return c.stageID }

// ContextOption configures NewContext.
type ContextOption func(*runContext)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *runContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID fixes the run identifier instead of generating one.
func WithContextRunID(id string) ContextOption {
	return func(c *runContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// NewContext wraps ctx for a run.
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	rc := &runContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// forStage derives the per-stage context. base, when non-nil, replaces the
// underlying context so the stage sees its span. Contexts not created by
// NewContext are passed through untouched.
func forStage(ctx Context, stageID string, base context.Context) Context {
	rc, ok := ctx.(*runContext)
	if !ok {
		return ctx
	}
	switch b := base.(type) {
	case nil:
		base = rc.Context
	case *runContext:
		base = b.Context
	}
	return &runContext{
		Context: base,
		logger:  rc.logger.With("run_id", rc.runID, "stage_id", stageID),
		runID:   rc.runID,
		stageID: stageID,
	}
}
