package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotAcquired is returned when the wait for a key ends before the holder releases it.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held key. Calling it more than once is a no-op.
type Unlock func()

// Locker grants exclusive sections keyed by an arbitrary string.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type keyedEntry struct {
	slot chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Different keys never contend.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrNotAcquired)
	}

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &keyedEntry{slot: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, fmt.Errorf("%w: key=%s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			m.release(key, entry)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, entry *keyedEntry) {
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

// Held reports how many keys currently have holders or waiters.
func (m *KeyedMutex) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type waitBounded struct {
	next Locker
	wait time.Duration
}

// WithWaitTimeout caps how long Lock may block before reporting ErrNotAcquired.
func WithWaitTimeout(next Locker, wait time.Duration) Locker {
	if wait <= 0 {
		return next
	}
	return waitBounded{next: next, wait: wait}
}

func (w waitBounded) Lock(ctx context.Context, key string) (Unlock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.wait)
	defer cancel()
	return w.next.Lock(waitCtx, key)
}
