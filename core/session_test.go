package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AddEventFoldsDelta(t *testing.T) {
	sess := NewSession("app", "u1", "s1")

	ev := NewEvent("inv-1", AuthorSystem)
	ev.Actions.StateDelta = map[string]any{"user:count": 3, "temp:scratch": "x"}
	sess.AddEvent(ev)

	v, ok := sess.GetState("user:count")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = sess.GetState("temp:scratch")
	assert.False(t, ok)
	assert.Len(t, sess.GetEvents(), 1)
}

func TestSession_HistoryExcludesSynthetic(t *testing.T) {
	sess := NewSession("app", "u1", "s1")
	sess.AddEvent(NewUserMessageEvent("inv-1", "hi"))
	sess.AddEvent(NewStatePersistEvent(map[string]any{"user:x": 1}))
	sess.AddEvent(NewModelContentEvent("inv-1", "agent", NewTextContent(RoleModel, "hello")))

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Content.Role)
	assert.Equal(t, RoleModel, history[1].Content.Role)
}

func TestSession_CloneIsIndependent(t *testing.T) {
	sess := NewSession("app", "u1", "s1")
	sess.SetState("user:name", "alice")
	sess.AddEvent(NewUserMessageEvent("inv-1", "hi"))

	clone := sess.Clone()
	clone.SetState("user:name", "bob")
	clone.AddEvent(NewUserMessageEvent("inv-2", "again"))

	v, _ := sess.GetState("user:name")
	assert.Equal(t, "alice", v)
	assert.Len(t, sess.GetEvents(), 1)
	assert.Len(t, clone.GetEvents(), 2)
}

func TestSession_Key(t *testing.T) {
	sess := NewSession("app", "u1", "s1")
	assert.Equal(t, "app/u1/s1", sess.Key())
}
