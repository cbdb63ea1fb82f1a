package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions as JSON values in Redis, refreshing the
// expiry on every save.
type RedisSessionStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore stores keys as prefix+id. A zero ttl keeps sessions
// until deleted.
func NewRedisSessionStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "bookgraph:session:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionStore) key(id string) string { return r.prefix + id }

// Load implements SessionStore.
func (r *RedisSessionStore) Load(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{ID: id}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save implements SessionStore.
func (r *RedisSessionStore) Save(ctx context.Context, s Session) error {
	if s.ID == "" {
		return ErrEmptySessionID
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements SessionStore.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
