// Package observability holds the logging, metrics and tracing hooks of a run.
// Logging uses log/slog; metrics and spans use the global OpenTelemetry
// providers. Everything is a no-op unless enabled.
package observability

import (
	"log/slog"
)

// LogRunStart logs the start of a run. A nil logger disables run logging.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("turn run starting", slog.String("run_id", runID))
}

// LogRunComplete logs a run that reached the end stage.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, stages int) {
	if logger == nil {
		return
	}
	logger.Info("turn run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("stages_executed", stages),
	)
}

// LogRunError logs a failed run and the stage it failed in.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, stageID string) {
	if logger == nil {
		return
	}
	logger.Error("turn run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("stage_id", stageID),
	)
}

// LogStageStart logs at debug level that a stage is starting.
func LogStageStart(logger *slog.Logger, stageID string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting", slog.String("stage_id", stageID))
}

// LogStageComplete logs a finished stage and its duration.
func LogStageComplete(logger *slog.Logger, stageID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage_id", stageID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs a failed stage.
func LogStageError(logger *slog.Logger, stageID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage_id", stageID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs a saved snapshot and its size.
func LogCheckpoint(logger *slog.Logger, stageID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("stage_id", stageID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a non-fatal checkpoint failure.
func LogCheckpointError(logger *slog.Logger, stageID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("stage_id", stageID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
