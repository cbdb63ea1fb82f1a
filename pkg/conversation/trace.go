package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/bookgraph/pkg/graph/checkpoint"
)

var (
	// ErrNoCheckpoints indicates the engine was built without WithCheckpoints.
	ErrNoCheckpoints = errors.New("checkpointing is not enabled")

	// ErrRunNotFound indicates no snapshots exist for a run.
	ErrRunNotFound = errors.New("run not found")
)

// Snapshot is the turn state saved after one stage.
type Snapshot struct {
	StageID   string    `json:"stage_id"`
	Sequence  int       `json:"sequence"`
	PrevStage string    `json:"prev_stage,omitempty"`
	NextStage string    `json:"next_stage"`
	SavedAt   time.Time `json:"saved_at"`
	State     TurnState `json:"state"`
}

// Trace reads a run's snapshots back in stage order.
func (e *Engine) Trace(runID string) ([]Snapshot, error) {
	if e.checkpoints == nil {
		return nil, ErrNoCheckpoints
	}
	return ReadTrace(e.checkpoints, runID)
}

// ReadTrace reads a run's snapshots from store in stage order.
func ReadTrace(store checkpoint.Store, runID string) ([]Snapshot, error) {
	infos, err := store.List(runID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	snaps := make([]Snapshot, 0, len(infos))
	for _, info := range infos {
		data, err := store.Load(runID, info.StageID)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint %s: %w", info.StageID, err)
		}
		cp, err := checkpoint.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint %s: %w", info.StageID, err)
		}
		snap := Snapshot{
			StageID:   cp.StageID,
			Sequence:  cp.Sequence,
			PrevStage: cp.PrevStage,
			NextStage: cp.NextStage,
			SavedAt:   cp.Timestamp,
		}
		if err := json.Unmarshal(cp.State, &snap.State); err != nil {
			return nil, fmt.Errorf("decode state %s: %w", info.StageID, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
