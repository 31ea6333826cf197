// Package session keeps the guard state of each client session. State is an
// explicit value loaded before and saved after every request.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kharcha/internal/guard"
)

// Store loads and saves guard state by session id. A session never seen
// before loads as the idle state.
type Store interface {
	Load(ctx context.Context, id string) (guard.State, error)
	Save(ctx context.Context, id string, state guard.State) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Locker hands out one mutex per key so requests of one session run one at a
// time while different sessions proceed in parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
