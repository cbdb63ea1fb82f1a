package graph

import (
	"errors"
	"fmt"
)

// Compile errors.
var (
	// ErrNoEntry indicates SetEntry was never called.
	ErrNoEntry = errors.New("entry stage not set")

	// ErrEntryNotFound indicates the entry names an unregistered stage.
	ErrEntryNotFound = errors.New("entry stage not found")

	// ErrStageNotFound indicates an edge or route references an unregistered stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrNoPathToEnd indicates End cannot be reached from the entry.
	ErrNoPathToEnd = errors.New("no path to end from entry")
)

// Run errors.
var (
	ErrNilContext           = errors.New("context cannot be nil")
	ErrMaxIterations        = errors.New("exceeded maximum iterations")
	ErrEmptyRoute           = errors.New("router returned empty string")
	ErrRouteTargetNotFound  = errors.New("router returned unknown stage")
	ErrCheckpointingNoRunID = errors.New("run ID required for checkpointing")
)

// StageError wraps an error returned by a stage.
type StageError struct {
	StageID string
	Err     error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.StageID, e.Err)
}

// Unwrap returns the stage's error for errors.Is/As support.
func (e *StageError) Unwrap() error { return e.Err }

// PanicError records a recovered stage panic and its stack.
type PanicError struct {
	StageID string
	Value   any
	Stack   string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.StageID, e.Value)
}

// RouterError reports a router that returned an unusable target.
type RouterError struct {
	From     string
	Returned string
	Err      error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("route from %s returned %q: %v", e.From, e.Returned, e.Err)
}

// Unwrap returns the underlying error.
func (e *RouterError) Unwrap() error { return e.Err }

// CancellationError reports that the context ended before a stage ran.
// State holds the last state (type-assert to S).
type CancellationError struct {
	StageID string
	State   any
	Cause   error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before stage %s: %v", e.StageID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error { return e.Cause }

// MaxIterationsError reports a run that hit the iteration cap.
type MaxIterationsError struct {
	Max     int
	StageID string
	State   any
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at stage %s", e.Max, e.StageID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error { return ErrMaxIterations }

// CheckpointError wraps a fatal checkpoint failure.
type CheckpointError struct {
	StageID string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at stage %s: %v", e.Op, e.StageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckpointError) Unwrap() error { return e.Err }

// FailedStage returns the stage an error from Run is attributed to, or "".
func FailedStage(err error) string {
	var (
		stageErr  *StageError
		panicErr  *PanicError
		routeErr  *RouterError
		cancelErr *CancellationError
		maxErr    *MaxIterationsError
		cpErr     *CheckpointError
	)
	switch {
	case errors.As(err, &stageErr):
		return stageErr.StageID
	case errors.As(err, &panicErr):
		return panicErr.StageID
	case errors.As(err, &routeErr):
		return routeErr.From
	case errors.As(err, &cancelErr):
		return cancelErr.StageID
	case errors.As(err, &maxErr):
		return maxErr.StageID
	case errors.As(err, &cpErr):
		return cpErr.StageID
	}
	return ""
}
