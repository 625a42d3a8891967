package session

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
)

// StatePersistStore decorates a SessionStore so state written by direct
// session mutation still becomes durable. After each append it compares
// the live session state against the stored snapshot and, when they have
// drifted, records the difference as a synthetic system event. Temp-scoped
// keys never reach the durable snapshot.
//
// Persistence failures of the synthetic event are logged and swallowed;
// the originating append has already succeeded and is not rolled back.
type StatePersistStore struct {
	inner  core.SessionStore
	logger logging.Logger
}

// NewStatePersistStore wraps inner. A nil logger falls back to no-op.
func NewStatePersistStore(inner core.SessionStore, logger logging.Logger) *StatePersistStore {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &StatePersistStore{inner: inner, logger: logger}
}

func (s *StatePersistStore) Create(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	return s.inner.Create(ctx, appName, userID, sessionID)
}

func (s *StatePersistStore) Get(ctx context.Context, appName, userID, sessionID string) (*core.Session, error) {
	return s.inner.Get(ctx, appName, userID, sessionID)
}

func (s *StatePersistStore) List(ctx context.Context, appName, userID string) ([]*core.Session, error) {
	return s.inner.List(ctx, appName, userID)
}

// AppendEvent delegates to the wrapped store, then reconciles any state the
// event did not carry. Synthetic persistence events pass straight through,
// which also terminates the self-append below.
func (s *StatePersistStore) AppendEvent(ctx context.Context, sess *core.Session, ev core.Event) (core.Event, error) {
	appended, err := s.inner.AppendEvent(ctx, sess, ev)
	if err != nil {
		return appended, err
	}
	if ev.IsStatePersist() {
		return appended, nil
	}

	delta := s.unpersistedState(ctx, sess)
	if len(delta) == 0 {
		return appended, nil
	}

	persistEv := core.NewStatePersistEvent(delta)
	if _, perr := s.AppendEvent(ctx, sess, persistEv); perr != nil {
		s.logger.Error("failed to persist session state for %s: %v", sess.ID, core.NewPersistenceError("persist state", perr))
	}
	return appended, nil
}

// unpersistedState returns the keys whose live value differs from the
// durable snapshot, temp keys excluded. A reload failure is treated as
// nothing to persist.
func (s *StatePersistStore) unpersistedState(ctx context.Context, sess *core.Session) map[string]any {
	stored, err := s.inner.Get(ctx, sess.AppName, sess.UserID, sess.ID)
	if err != nil {
		s.logger.Error("failed to load durable session state for %s: %v", sess.ID, err)
		return nil
	}

	live := core.FilterTempState(sess.StateSnapshot())
	durable := stored.StateSnapshot()

	delta := map[string]any{}
	for k, v := range live {
		dv, ok := durable[k]
		if !ok || !valueEqual(v, dv) {
			delta[k] = v
		}
	}
	return delta
}

// valueEqual compares state values through their JSON form, so values that
// round-tripped through a durable store (ints decoding as float64) still
// compare equal to their live counterparts.
func valueEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
