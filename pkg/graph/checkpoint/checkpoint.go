package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the envelope format version.
const Version = 1

// Checkpoint is the envelope saved after a stage: the serialized state plus
// where the run was heading.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	StageID   string    `json:"stage_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	State     json.RawMessage `json:"state"`
	NextStage string          `json:"next_stage"`
	PrevStage string          `json:"prev_stage,omitempty"`
}

// New builds an envelope. state must already be JSON.
func New(runID, stageID string, sequence int, state []byte, next string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		StageID:   stageID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextStage: next,
	}
}

// WithPrevStage records the stage that ran before this one.
func (c *Checkpoint) WithPrevStage(id string) *Checkpoint {
	c.PrevStage = id
	return c
}

// Marshal encodes the envelope.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
