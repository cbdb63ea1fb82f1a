package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records run, stage and claim metrics.
type MetricsRecorder interface {
	RecordStage(ctx context.Context, stageID string, duration time.Duration, err error)
	RecordRun(ctx context.Context, success bool, duration time.Duration)
	RecordCheckpoint(ctx context.Context, stageID string, sizeBytes int64)

	// RecordClaims counts entities that passed and failed catalog verification.
	RecordClaims(ctx context.Context, verified, rejected int)
}

type otelMetrics struct {
	stageExecutions metric.Int64Counter
	stageLatency    metric.Float64Histogram
	stageErrors     metric.Int64Counter
	runs            metric.Int64Counter
	runLatency      metric.Float64Histogram
	checkpointSize  metric.Int64Histogram
	claims          metric.Int64Counter
}

var (
	sharedMetrics     *otelMetrics
	sharedMetricsOnce sync.Once
	sharedMetricsErr  error
)

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("bookgraph")
	m := &otelMetrics{}
	var err error

	if m.stageExecutions, err = meter.Int64Counter("bookgraph.stage.executions",
		metric.WithDescription("Number of stage executions")); err != nil {
		return nil, err
	}
	if m.stageLatency, err = meter.Float64Histogram("bookgraph.stage.latency_ms",
		metric.WithDescription("Stage latency in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.stageErrors, err = meter.Int64Counter("bookgraph.stage.errors",
		metric.WithDescription("Number of failed stage executions")); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("bookgraph.run.count",
		metric.WithDescription("Number of turn runs")); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("bookgraph.run.latency_ms",
		metric.WithDescription("Turn run latency in milliseconds"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.checkpointSize, err = meter.Int64Histogram("bookgraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.claims, err = meter.Int64Counter("bookgraph.claims",
		metric.WithDescription("Candidate entities by verification outcome")); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns the process-wide OpenTelemetry recorder, or
// NoopMetrics if the instruments cannot be created. Set the global meter
// provider before the first call.
func NewMetricsRecorder() MetricsRecorder {
	sharedMetricsOnce.Do(func() {
		sharedMetrics, sharedMetricsErr = newOtelMetrics()
	})
	if sharedMetricsErr != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", sharedMetricsErr.Error()))
		return NoopMetrics{}
	}
	return sharedMetrics
}

// RecordStage counts the execution, its latency and any error.
func (m *otelMetrics) RecordStage(ctx context.Context, stageID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("stage_id", stageID))
	m.stageExecutions.Add(ctx, 1, attrs)
	m.stageLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.stageErrors.Add(ctx, 1, attrs)
	}
}

// RecordRun counts the run by outcome and records its latency.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCheckpoint records the snapshot size.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, stageID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("stage_id", stageID)))
}

// RecordClaims counts verified and rejected candidates.
func (m *otelMetrics) RecordClaims(ctx context.Context, verified, rejected int) {
	if verified > 0 {
		m.claims.Add(ctx, int64(verified), metric.WithAttributes(attribute.String("outcome", "verified")))
	}
	if rejected > 0 {
		m.claims.Add(ctx, int64(rejected), metric.WithAttributes(attribute.String("outcome", "rejected")))
	}
}
