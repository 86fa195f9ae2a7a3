package lock

import (
	"context"
	"sync"
)

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// Memory is an in-process keyed mutex. Entries are dropped once no goroutine holds or waits on them.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemory creates an empty in-process locker.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

func (m *Memory) acquire(key string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *Memory) release(key string, e *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (m *Memory) Lock(ctx context.Context, key string) (Unlock, error) {
	e := m.acquire(key)
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.release(key, e)
		})
	}, nil
}

// Close is a no-op for the in-process locker.
func (m *Memory) Close() error {
	return nil
}

// held reports the number of keys currently tracked.
func (m *Memory) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
