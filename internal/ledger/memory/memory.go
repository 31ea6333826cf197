// Package memory is an in-process ledger store, used for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

// Store keeps entries in a map guarded by a mutex.
type Store struct {
	mu    sync.Mutex
	seq   int64
	items map[string]core.LedgerEntry
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]core.LedgerEntry)}
}

// Append validates the whole batch first, then stores it with sequential ids.
func (s *Store) Append(_ context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, len(entries))
	for i, e := range entries {
		s.seq++
		// Zero-padded so lexical order matches insertion order.
		e.ID = fmt.Sprintf("mem-%010d", s.seq)
		s.items[e.ID] = e
		out[i] = e
	}
	return out, nil
}

// Query returns a snapshot ordered newest first.
func (s *Store) Query(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	out := make([]core.LedgerEntry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	s.mu.Unlock()

	ledger.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
