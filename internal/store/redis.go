package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glamhair/patglam-agent/internal/dialog"
)

const (
	sessionKeyPrefix    = "call:session:"
	transcriptKeyPrefix = "call:transcript:"
	consumedKeyPrefix   = "call:done:"

	// State outlives a call only long enough for the terminal webhook to
	// arrive, retries included.
	callTTL = 24 * time.Hour
)

// RedisStore persists call state in Redis. Sessions are JSON values, the
// transcript is an RPUSH list so append order is the read order.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string    { return sessionKeyPrefix + id }
func transcriptKey(id string) string { return transcriptKeyPrefix + id }
func consumedKey(id string) string   { return consumedKeyPrefix + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*dialog.CallSession, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var session dialog.CallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session get: unmarshal: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *dialog.CallSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session put: id required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session put: marshal: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(session.ID), data, callTTL).Err()
}

func (s *RedisStore) AppendTurn(ctx context.Context, id string, t dialog.Turn) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("turn append: marshal: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, transcriptKey(id), data)
	pipe.Expire(ctx, transcriptKey(id), callTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("turn append: %w", err)
	}
	return nil
}

func (s *RedisStore) Turns(ctx context.Context, id string) ([]dialog.Turn, error) {
	items, err := s.rdb.LRange(ctx, transcriptKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("transcript read: %w", err)
	}

	turns := make([]dialog.Turn, 0, len(items))
	for _, item := range items {
		var t dialog.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("transcript read: unmarshal: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id), transcriptKey(id)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// Consume sets the one-time-consumption marker atomically. SETNX means a
// duplicated terminal webhook can never win the race twice, even across
// server instances sharing the same Redis.
func (s *RedisStore) Consume(ctx context.Context, id string) (bool, error) {
	first, err := s.rdb.SetNX(ctx, consumedKey(id), "1", callTTL).Result()
	if err != nil {
		return false, fmt.Errorf("consume: %w", err)
	}
	return first, nil
}
