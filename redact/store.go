package redact

import (
	"context"
	"sync"
)

// MappingStore persists token-to-value mappings scoped by session key
// ("app/user/session"). Implementations must be safe for concurrent use.
type MappingStore interface {
	// Put records a token's original value for the session. Writing an
	// existing token again is a no-op by determinism of Token.
	Put(ctx context.Context, sessionKey, token, value string) error
	// Get returns the original value for a token within the session.
	Get(ctx context.Context, sessionKey, token string) (string, bool, error)
}

// InMemoryStore is a process-local MappingStore.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewInMemoryStore creates an empty in-memory mapping store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string]string)}
}

// Put implements MappingStore.
func (s *InMemoryStore) Put(_ context.Context, sessionKey, token, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[sessionKey]
	if !ok {
		m = make(map[string]string)
		s.sessions[sessionKey] = m
	}
	m[token] = value
	return nil
}

// Get implements MappingStore.
func (s *InMemoryStore) Get(_ context.Context, sessionKey, token string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.sessions[sessionKey][token]
	return value, ok, nil
}
