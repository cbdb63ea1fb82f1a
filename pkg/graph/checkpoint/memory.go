package checkpoint

import (
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints in process memory. Used by tests and by the CLI
// when no database path is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]map[string]entry
	seq    int
	closed bool
}

type entry struct {
	data     []byte
	sequence int
	savedAt  time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string]entry)}
}

// Save implements Store.
func (m *MemoryStore) Save(runID, stageID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.runs[runID] == nil {
		m.runs[runID] = make(map[string]entry)
	}

	m.seq++
	m.runs[runID][stageID] = entry{
		data:     slices.Clone(data),
		sequence: m.seq,
		savedAt:  time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID, stageID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	e, ok := m.runs[runID][stageID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(e.data), nil
}

// List implements Store.
func (m *MemoryStore) List(runID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.runs[runID]))
	for stageID, e := range m.runs[runID] {
		infos = append(infos, Info{
			RunID:    runID,
			StageID:  stageID,
			Sequence: e.sequence,
			SavedAt:  e.savedAt,
			Size:     int64(len(e.data)),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int { return a.Sequence - b.Sequence })
	return infos, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.runs, runID)
	return nil
}

// Prune implements Store.
func (m *MemoryStore) Prune(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	removed := 0
	for runID, stages := range m.runs {
		for stageID, e := range stages {
			if e.savedAt.Before(cutoff) {
				delete(stages, stageID)
				removed++
			}
		}
		if len(stages) == 0 {
			delete(m.runs, runID)
		}
	}
	return removed, nil
}

// Close implements Store. Later calls fail with ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len counts checkpoints across all runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, stages := range m.runs {
		n += len(stages)
	}
	return n
}
