package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
)

func countStatePersists(events []core.Event) int {
	n := 0
	for _, ev := range events {
		if ev.IsStatePersist() {
			n++
		}
	}
	return n
}

func TestStatePersistStore_CapturesDirectMutation(t *testing.T) {
	store := NewStatePersistStore(NewInMemoryStore(), nil)
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	// a tool mutates the live session directly, bypassing the delta channel
	sess.SetState("user:mood", "curious")

	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "hi"))
	require.NoError(t, err)

	reloaded, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)
	v, ok := reloaded.GetState("user:mood")
	require.True(t, ok, "directly mutated state must survive a reload")
	assert.Equal(t, "curious", v)

	events := reloaded.GetEvents()
	require.Len(t, events, 2)
	assert.Equal(t, 1, countStatePersists(events))

	synthetic := events[1]
	assert.Equal(t, core.StatePersistInvocationID, synthetic.InvocationID)
	assert.Equal(t, core.AuthorSystem, synthetic.Author)
	assert.Nil(t, synthetic.Content)
}

func TestStatePersistStore_FiltersTempKeys(t *testing.T) {
	store := NewStatePersistStore(NewInMemoryStore(), nil)
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	sess.SetState("temp:user_id", "u1")
	sess.SetState("user:mood", "calm")

	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "hi"))
	require.NoError(t, err)

	reloaded, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)
	_, ok := reloaded.GetState("temp:user_id")
	assert.False(t, ok, "temp keys never become durable")
	_, ok = reloaded.GetState("user:mood")
	assert.True(t, ok)
}

func TestStatePersistStore_NoSyntheticWithoutDrift(t *testing.T) {
	store := NewStatePersistStore(NewInMemoryStore(), nil)
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	// delta-carrying events keep live and durable state in sync
	ev := core.NewEvent("inv-1", core.AuthorSystem)
	ev.Actions.StateDelta = map[string]any{"user:count": 1}
	_, err = store.AppendEvent(context.Background(), sess, ev)
	require.NoError(t, err)

	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "hi"))
	require.NoError(t, err)

	reloaded, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, countStatePersists(reloaded.GetEvents()))
}

func TestStatePersistStore_SingleSyntheticPerDrift(t *testing.T) {
	store := NewStatePersistStore(NewInMemoryStore(), nil)
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	sess.SetState("user:mood", "curious")

	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "hi"))
	require.NoError(t, err)
	// the same state appended again must not produce a second synthetic
	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "again"))
	require.NoError(t, err)

	reloaded, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, countStatePersists(reloaded.GetEvents()))
}

// flakyStore fails AppendEvent for synthetic persistence events only.
type flakyStore struct {
	*InMemoryStore
}

func (s *flakyStore) AppendEvent(ctx context.Context, sess *core.Session, ev core.Event) (core.Event, error) {
	if ev.IsStatePersist() {
		return core.Event{}, errors.New("disk full")
	}
	return s.InMemoryStore.AppendEvent(ctx, sess, ev)
}

func TestStatePersistStore_SwallowsSyntheticFailure(t *testing.T) {
	store := NewStatePersistStore(&flakyStore{NewInMemoryStore()}, nil)
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	sess.SetState("user:mood", "curious")

	// the originating append must succeed even though the synthetic write fails
	_, err = store.AppendEvent(context.Background(), sess, core.NewUserMessageEvent("inv-1", "hi"))
	require.NoError(t, err)

	reloaded, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)
	assert.Len(t, reloaded.GetEvents(), 1)
}
