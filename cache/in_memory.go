package cache

import (
	"context"
	"sync"
)

// InMemoryStore is a process-local Store. Entries live until the process
// exits; there is no eviction.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewInMemoryStore creates an empty in-memory cache store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]string)}
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.entries[key]
	return text, ok, nil
}

// Put implements Store.
func (s *InMemoryStore) Put(_ context.Context, key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = text
	return nil
}

// Len returns the number of cached entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
