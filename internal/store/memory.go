package store

import (
	"context"
	"sync"
	"time"

	"github.com/glamhair/patglam-agent/internal/dialog"
)

// MemoryStore is the in-process fallback backend. It honors the same per-id
// discipline as the Redis backend so switching never changes correctness.
// Consumption markers expire after callTTL, like their Redis counterparts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]dialog.CallSession
	turns    map[string][]dialog.Turn
	consumed map[string]time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]dialog.CallSession),
		turns:    make(map[string][]dialog.Turn),
		consumed: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*dialog.CallSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := s
	return &copied, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *dialog.CallSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) AppendTurn(ctx context.Context, id string, t dialog.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns[id] = append(m.turns[id], t)
	return nil
}

func (m *MemoryStore) Turns(ctx context.Context, id string) ([]dialog.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.turns[id]
	out := make([]dialog.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.turns, id)
	return nil
}

func (m *MemoryStore) Consume(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepConsumed(now)

	if at, done := m.consumed[id]; done && now.Sub(at) < callTTL {
		return false, nil
	}
	m.consumed[id] = now
	return true, nil
}

// sweepConsumed drops expired markers so the map stays bounded by the number
// of calls finished within one TTL window. Caller holds the write lock.
func (m *MemoryStore) sweepConsumed(now time.Time) {
	for id, at := range m.consumed {
		if now.Sub(at) >= callTTL {
			delete(m.consumed, id)
		}
	}
}
