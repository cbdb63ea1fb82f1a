package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
	"github.com/randalmurphal/bookgraph/pkg/graph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph from its entry stage until End.
//
// On success it returns the state produced by the last stage. On failure it
// returns the state as it was when the failing stage was entered, together with
// a *StageError, *PanicError, *RouterError, *CancellationError,
// *MaxIterationsError or *CheckpointError.
func (c *Compiled[S]) Run(ctx Context, state S, opts ...RunOption) (result S, err error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = ctx.RunID()
	}
	if cfg.store != nil && cfg.runID == "" {
		return state, ErrCheckpointingNoRunID
	}

	start := time.Now()
	observability.LogRunStart(cfg.logger, cfg.runID)

	var spanCtx context.Context = ctx
	if cfg.tracingEnabled {
		var span trace.Span
		spanCtx, span = cfg.spans.StartRunSpan(ctx, "bookgraph", cfg.runID)
		defer func() { cfg.spans.EndSpanWithError(span, err) }()
	}

	result, executed, err := c.loop(spanCtx, ctx, state, &cfg)

	elapsed := time.Since(start)
	cfg.metrics.RecordRun(ctx, err == nil, elapsed)
	if err != nil {
		observability.LogRunError(cfg.logger, cfg.runID, err, ms(elapsed), FailedStage(err))
	} else {
		observability.LogRunComplete(cfg.logger, cfg.runID, ms(elapsed), executed)
	}
	return result, err
}

func (c *Compiled[S]) loop(spanCtx context.Context, ctx Context, state S, cfg *runConfig) (S, int, error) {
	current := c.entry
	prev := ""
	executed := 0

	for current != End {
		if executed >= cfg.maxIterations {
			return state, executed, &MaxIterationsError{Max: cfg.maxIterations, StageID: current, State: state}
		}

		if err := ctx.Err(); err != nil {
			return state, executed, &CancellationError{StageID: current, State: state, Cause: err}
		}

		observability.LogStageStart(cfg.logger, current)
		stageSpanCtx, span := cfg.spans.StartStageSpan(spanCtx, current)

		began := time.Now()
		next, stageErr := c.execute(ctx, stageSpanCtx, current, state)
		took := time.Since(began)

		cfg.metrics.RecordStage(stageSpanCtx, current, took, stageErr)
		cfg.spans.EndSpanWithError(span, stageErr)

		if stageErr != nil {
			observability.LogStageError(cfg.logger, current, stageErr)
			return state, executed, stageErr
		}
		observability.LogStageComplete(cfg.logger, current, ms(took))

		state = next
		executed++
		if cfg.path != nil {
			*cfg.path = append(*cfg.path, current)
		}

		target, err := c.route(ctx, current, state)
		if err != nil {
			return state, executed, err
		}

		if cfg.store != nil {
			if err := c.checkpoint(ctx, cfg, current, prev, target, state); err != nil {
				return state, executed, err
			}
		}

		prev, current = current, target
	}

	return state, executed, nil
}

// execute runs one stage, converting a panic into a *PanicError.
func (c *Compiled[S]) execute(ctx Context, spanCtx context.Context, id string, state S) (out S, err error) {
	fn := c.stages[id]

	defer func() {
		if r := recover(); r != nil {
			out = state
			err = &PanicError{StageID: id, Value: r, Stack: string(debug.Stack())}
		}
	}()

	out, err = fn(forStage(ctx, id, spanCtx), state)
	if err != nil {
		return state, &StageError{StageID: id, Err: err}
	}
	return out, nil
}

// route picks the next stage: the router when one is attached, otherwise the
// first plain edge.
func (c *Compiled[S]) route(ctx Context, current string, state S) (string, error) {
	if router, ok := c.routes[current]; ok {
		next := router(forStage(ctx, current, nil), state)
		switch {
		case next == "":
			return "", &RouterError{From: current, Returned: next, Err: ErrEmptyRoute}
		case next != End && !c.HasStage(next):
			return "", &RouterError{From: current, Returned: next, Err: ErrRouteTargetNotFound}
		}
		return next, nil
	}

	edges := c.edges[current]
	if len(edges) == 0 {
		return "", &StageError{StageID: current, Err: fmt.Errorf("no outgoing edge from %s", current)}
	}
	return edges[0], nil
}

func (c *Compiled[S]) checkpoint(ctx Context, cfg *runConfig, stageID, prev, next string, state S) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFatal {
			return &CheckpointError{StageID: stageID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, stageID, op, err)
		return nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, stageID, cfg.sequence, raw, next).WithPrevStage(prev)
	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.store.Save(cfg.runID, stageID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, stageID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, stageID, int64(len(data)))
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
