package session

import (
	"context"
	"time"

	"kharcha/internal/cache"
	"kharcha/internal/guard"
)

// MemoryStore keeps session state in an in-process LRU cache.
type MemoryStore struct {
	cache *cache.LRUCache[guard.State]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore holds at most maxSessions sessions, each expiring ttl after
// its last save.
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.NewLRUCache[guard.State](maxSessions, ttl)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (guard.State, error) {
	state, ok := s.cache.Get(id)
	if !ok {
		return guard.State{Phase: guard.Idle}, nil
	}
	return state, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state guard.State) error {
	s.cache.Set(id, state)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Cleaner exposes the cache for registration with a cache.Manager.
func (s *MemoryStore) Cleaner() cache.Cleaner {
	return s.cache
}
