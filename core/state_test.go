package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldDelta_SkipsTempKeys(t *testing.T) {
	state := map[string]any{"user:count": 1}
	FoldDelta(state, map[string]any{
		"user:count":   2,
		"app:mode":     "demo",
		"temp:user_id": "u1",
		"temp:scratch": "x",
	})

	assert.Equal(t, 2, state["user:count"])
	assert.Equal(t, "demo", state["app:mode"])
	assert.NotContains(t, state, "temp:user_id")
	assert.NotContains(t, state, "temp:scratch")
}

func TestFilterTempState(t *testing.T) {
	filtered := FilterTempState(map[string]any{
		"user:name":       "alice",
		"temp:user_id":    "u1",
		StateKeySessionID: "s1",
	})

	assert.Equal(t, map[string]any{"user:name": "alice"}, filtered)
}

func TestStateEqual(t *testing.T) {
	a := map[string]any{"user:n": 1, "app:m": []any{"x"}}
	b := map[string]any{"user:n": 1, "app:m": []any{"x"}}
	assert.True(t, StateEqual(a, b))

	b["user:n"] = 2
	assert.False(t, StateEqual(a, b))

	assert.False(t, StateEqual(a, map[string]any{"user:n": 1}))
}
