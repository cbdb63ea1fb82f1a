// Package checkpoint stores per-stage snapshots of a run so a turn can be
// inspected after the fact.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints keyed by (run ID, stage ID).
// Implementations must be safe for concurrent use.
type Store interface {
	// Save writes a checkpoint, replacing any previous one for the same stage.
	Save(runID, stageID string, data []byte) error

	// Load returns ErrNotFound when the checkpoint does not exist.
	Load(runID, stageID string) ([]byte, error)

	// List returns the run's checkpoints ordered by sequence. A run without
	// checkpoints yields an empty slice and no error.
	List(runID string) ([]Info, error)

	// DeleteRun removes every checkpoint of a run.
	DeleteRun(runID string) error

	// Prune removes checkpoints saved before cutoff and reports how many went.
	Prune(cutoff time.Time) (int, error)

	Close() error
}

// Info describes a checkpoint without its payload.
type Info struct {
	RunID    string
	StageID  string
	Sequence int
	SavedAt  time.Time
	Size     int64
}

var (
	// ErrNotFound indicates the checkpoint does not exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store was closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
