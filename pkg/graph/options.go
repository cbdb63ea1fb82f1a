package graph

import (
	"log/slog"

	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
	"github.com/randalmurphal/bookgraph/pkg/graph/observability"
)

// runConfig holds per-run settings.
type runConfig struct {
	maxIterations int
	runID         string

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	store           checkpoint.Store
	checkpointFatal bool
	sequence        int

	path *[]string
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 100,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

// WithMaxIterations caps the number of stage executions. Default: 100.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunID sets the run identifier used for logs, spans and checkpoints.
// Defaults to the Context's RunID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithRunLogger enables run and stage lifecycle logging.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics records OpenTelemetry metrics against the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing emits a run span with one child span per stage.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithCheckpointing saves the state after every successful stage.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.store = store
	}
}

// WithCheckpointFailureFatal makes a failed checkpoint save stop the run.
// By default such failures are logged and the run continues.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFatal = fatal
	}
}

// WithPathRecorder appends each executed stage ID to path.
func WithPathRecorder(path *[]string) RunOption {
	return func(c *runConfig) {
		c.path = path
	}
}
