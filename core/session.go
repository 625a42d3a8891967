package core

import (
	"context"
	"sync"
	"time"
)

// Session is the durable conversation container owned by one (app, user)
// pair: an ordered event history plus the state mapping folded from every
// event's delta. It is safe for concurrent access.
//
// Contract:
//   - the event log is append-only, never mutated or reordered
//   - State equals the fold of all deltas up to the latest event
//   - History excludes zero-content events (synthetic state persists)
//   - Clone performs deep copies for safe divergence
type Session struct {
	AppName string         `json:"app_name"`
	UserID  string         `json:"user_id"`
	ID      string         `json:"id"`
	State   map[string]any `json:"state"`
	Events  []Event        `json:"events"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates an empty session addressed by (app, user, id).
func NewSession(appName, userID, id string) *Session {
	now := time.Now().UTC()
	return &Session{
		AppName: appName,
		UserID:  userID,
		ID:      id,
		State:   map[string]any{},
		Events:  []Event{},
		Created: now,
		Updated: now,
	}
}

// Key returns the composite store key "app/user/id".
func (s *Session) Key() string { return s.AppName + "/" + s.UserID + "/" + s.ID }

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState writes a key/value pair directly into session state. Mutations
// made this way bypass the event delta channel; the state persistence
// wrapper exists to durably capture them.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now().UTC()
}

// ApplyStateDelta folds the provided delta into State (last-write-wins,
// internal-protocol keys skipped).
func (s *Session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	FoldDelta(s.State, delta)
	s.Updated = time.Now().UTC()
}

// AddEvent appends an event to the history and folds its delta.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	if len(ev.Actions.StateDelta) > 0 {
		FoldDelta(s.State, ev.Actions.StateDelta)
	}
	s.Updated = time.Now().UTC()
}

// GetEvents returns a defensive copy of the full event log.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// StateSnapshot returns a shallow copy of the current state mapping.
func (s *Session) StateSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.State))
	for k, v := range s.State {
		out[k] = v
	}
	return out
}

// History returns the conversational events in log order: content-bearing
// user/model/tool events. Synthetic state persists carry no content and are
// excluded, so they never count as turns.
func (s *Session) History() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{RoleUser: true, RoleModel: true, RoleTool: true}
	res := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		AppName: s.AppName,
		UserID:  s.UserID,
		ID:      s.ID,
		State:   make(map[string]any, len(s.State)),
		Events:  make([]Event, len(s.Events)),
		Created: s.Created,
		Updated: s.Updated,
	}
	for k, v := range s.State {
		clone.State[k] = v
	}
	copy(clone.Events, s.Events)
	return clone
}

// SessionStore persists sessions and their evolving state / event history.
// Implementations must serialize concurrent appends to the same session.
type SessionStore interface {
	// Create allocates (or resets) a session addressed by (app, user, id).
	Create(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// Get returns a session, creating it lazily on first use. The returned
	// session is the caller's live working copy for an invocation.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)

	// List returns all sessions belonging to (app, user).
	List(ctx context.Context, appName, userID string) ([]*Session, error)

	// AppendEvent appends the event to the session's durable log and, if it
	// carries a non-empty state delta, folds the delta into session state
	// atomically with the log write. The passed live session is updated to
	// match. The (possibly normalized) appended event is returned.
	AppendEvent(ctx context.Context, sess *Session, ev Event) (Event, error)
}
