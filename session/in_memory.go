// Package session provides SessionStore implementations (volatile in-memory
// and SQLite-backed) plus the state persistence decorator that durably
// captures state mutated by tools outside the event delta channel.
package session

import (
	"context"
	"sync"

	"github.com/hupe1980/agentpipe/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned sessions are clones: the caller owns a
// live working copy for one invocation, while AppendEvent keeps the durable
// record and the caller's copy in sync.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create forces the creation (or resetting) of a session.
func (s *InMemoryStore) Create(_ context.Context, appName, userID, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(appName, userID, sessionID).Clone(), nil
}

// Get returns an existing session (clone) or creates one lazily.
func (s *InMemoryStore) Get(_ context.Context, appName, userID, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key(appName, userID, sessionID)]; ok {
		return sess.Clone(), nil
	}
	return s.createLocked(appName, userID, sessionID).Clone(), nil
}

// List returns clones of all sessions belonging to (app, user).
func (s *InMemoryStore) List(_ context.Context, appName, userID string) ([]*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Session
	for _, sess := range s.sessions {
		if sess.AppName == appName && sess.UserID == userID {
			out = append(out, sess.Clone())
		}
	}
	return out, nil
}

// AppendEvent appends the event to the durable record, folding any state
// delta atomically under the store lock, and mirrors the append into the
// caller's live session. The store lock serializes concurrent appends to
// the same session.
func (s *InMemoryStore) AppendEvent(_ context.Context, sess *core.Session, ev core.Event) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sess.Key()]
	if !ok {
		stored = s.createLocked(sess.AppName, sess.UserID, sess.ID)
	}
	stored.AddEvent(ev)
	sess.AddEvent(ev)
	return ev, nil
}

// createLocked allocates and stores a new session; caller must hold the lock.
func (s *InMemoryStore) createLocked(appName, userID, sessionID string) *core.Session {
	sess := core.NewSession(appName, userID, sessionID)
	s.sessions[sess.Key()] = sess
	return sess
}

func key(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}
