package kvstore

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string]memEntry
	sets   map[string][]string
	now    func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memEntry),
		sets:   make(map[string][]string),
		now:    time.Now,
	}
}

// Get implements Store. Expired entries are treated as absent.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.value), nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.values[key] = e
	m.mu.Unlock()
	return nil
}

// Take implements Store.
func (m *Memory) Take(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.values, key)
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	delete(m.sets, key)
	m.mu.Unlock()
	return nil
}

// AddMembers implements Store. Re-adding a member moves it to the newest position.
func (m *Memory) AddMembers(_ context.Context, key string, members []string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.sets[key]
	for _, member := range members {
		if i := slices.Index(set, member); i >= 0 {
			set = slices.Delete(set, i, i+1)
		}
		set = append(set, member)
	}
	if limit > 0 && len(set) > limit {
		set = slices.Clone(set[len(set)-limit:])
	}
	m.sets[key] = set
	return nil
}

// Members implements Store.
func (m *Memory) Members(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sets[key]), nil
}

var _ Store = (*Memory)(nil)
