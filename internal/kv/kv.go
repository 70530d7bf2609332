// Package kv defines the key-value storage capability used by adapters that
// need durability beyond process memory, plus an in-memory implementation.
//
// Concrete backends live in subpackages: sqlitekv (SQLite) and badgerkv
// (BadgerDB). The engine core never depends on a backend directly.
package kv

import (
	"context"
	"sync"
)

// Storage is the minimal get/set capability.
type Storage interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// WatchFunc is called with the new value each time a watched key is set.
type WatchFunc func(value []byte)

// Watcher is implemented by backends that can report changes.
type Watcher interface {
	// Watch calls fn for every Set of key until ctx is done, then returns
	// ctx.Err(). It blocks.
	Watch(ctx context.Context, key string, fn WatchFunc) error
}

// Revisioner is implemented by backends that count writes per key.
type Revisioner interface {
	// Revision returns how many times key has been set, or 0 if never.
	Revision(ctx context.Context, key string) (int64, error)
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Memory is a map-backed Storage and Watcher. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string]map[int]WatchFunc
	nextID   int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		watchers: make(map[string]map[int]WatchFunc),
	}
}

// Get implements Storage.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Storage. Watchers are called synchronously after the
// value is stored.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	fns := make([]WatchFunc, 0, len(m.watchers[key]))
	for _, fn := range m.watchers[key] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(append([]byte(nil), value...))
	}
	return nil
}

// Watch implements Watcher.
func (m *Memory) Watch(ctx context.Context, key string, fn WatchFunc) error {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[int]WatchFunc)
	}
	m.watchers[key][id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers[key], id)
	if len(m.watchers[key]) == 0 {
		delete(m.watchers, key)
	}
	m.mu.Unlock()
	return ctx.Err()
}

// watcherCount reports registered watchers for key. Used for testing.
func (m *Memory) watcherCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[key])
}
