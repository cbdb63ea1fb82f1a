package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/randalmurphal/bookgraph/pkg/llm"
)

// ErrEmptySessionID is returned by Chat for a blank session ID.
var ErrEmptySessionID = errors.New("session ID is empty")

// Session is one user's conversation history.
type Session struct {
	ID        string        `json:"id"`
	Messages  []llm.Message `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionStore persists sessions between turns. Loading an unknown ID
// returns an empty session, not an error.
type SessionStore interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

// Chat runs a turn against the history held in store and saves the result.
// Turns on one session ID are serialized within this Engine; callers running
// several processes against a shared store must serialize across them.
func (e *Engine) Chat(ctx context.Context, store SessionStore, sessionID, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}
	if strings.TrimSpace(sessionID) == "" {
		return Reply{}, ErrEmptySessionID
	}

	release, err := e.sessions.acquire(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	defer release()

	sess, err := store.Load(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	reply, err := e.HandleTurn(ctx, message, sess.Messages)
	if err != nil {
		return Reply{}, err
	}

	sess.ID = sessionID
	sess.Messages = reply.History
	sess.UpdatedAt = time.Now().UTC()
	if err := store.Save(ctx, sess); err != nil {
		return reply, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return reply, nil
}

// sessionLocks hands out one lock per session ID. An entry lives only while
// someone holds or waits for it.
type sessionLocks struct {
	mu   sync.Mutex
	byID map[string]*sessionLock
}

type sessionLock struct {
	slot chan struct{}
	refs int
}

func (l *sessionLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	if l.byID == nil {
		l.byID = make(map[string]*sessionLock)
	}
	lk, ok := l.byID[id]
	if !ok {
		lk = &sessionLock{slot: make(chan struct{}, 1)}
		l.byID[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	unref := func() {
		l.mu.Lock()
		if lk.refs--; lk.refs == 0 {
			delete(l.byID, id)
		}
		l.mu.Unlock()
	}

	select {
	case lk.slot <- struct{}{}:
	case <-ctx.Done():
		unref()
		return nil, ctx.Err()
	}
	return func() {
		<-lk.slot
		unref()
	}, nil
}

func (l *sessionLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}

// MemorySessionStore keeps sessions in process memory with expiry.
type MemorySessionStore struct {
	cache *cache.Cache
}

// NewMemorySessionStore expires sessions idle for ttl, sweeping every
// cleanup. Zero values default to one hour and ten minutes.
func NewMemorySessionStore(ttl, cleanup time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemorySessionStore{cache: cache.New(ttl, cleanup)}
}

// Load returns a copy of the stored session.
func (m *MemorySessionStore) Load(_ context.Context, id string) (Session, error) {
	if x, found := m.cache.Get(id); found {
		s := x.(Session)
		s.Messages = slices.Clone(s.Messages)
		return s, nil
	}
	return Session{ID: id}, nil
}

// Save stores a copy of s and resets its expiry.
func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	if s.ID == "" {
		return ErrEmptySessionID
	}
	s.Messages = slices.Clone(s.Messages)
	m.cache.Set(s.ID, s, cache.DefaultExpiration)
	return nil
}

// Delete forgets the session.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}
