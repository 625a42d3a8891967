package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessageEvent(t *testing.T) {
	ev := NewUserMessageEvent("inv-1", "hello")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "inv-1", ev.InvocationID)
	assert.Equal(t, AuthorUser, ev.Author)
	require.NotNil(t, ev.Content)
	assert.Equal(t, RoleUser, ev.Content.Role)
	assert.Equal(t, "hello", ev.Content.Text())
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, "UTC", ev.Timestamp.Location().String())
}

func TestEvent_IsStatePersist(t *testing.T) {
	ev := NewStatePersistEvent(map[string]any{"user:count": 1})
	assert.True(t, ev.IsStatePersist())

	msg := NewUserMessageEvent("inv-1", "hi")
	assert.False(t, msg.IsStatePersist())

	// same sentinel id but content-bearing is not synthetic
	withContent := NewStatePersistEvent(nil)
	c := NewTextContent(RoleModel, "text")
	withContent.Content = &c
	assert.False(t, withContent.IsStatePersist())

	// sentinel id without the system author is not synthetic
	wrongAuthor := NewStatePersistEvent(nil)
	wrongAuthor.Author = "someone"
	assert.False(t, wrongAuthor.IsStatePersist())
}

func TestEvent_GetFunctionCalls(t *testing.T) {
	ev := NewEvent("inv-1", "agent")
	ev.Content = &Content{
		Role: RoleModel,
		Parts: []Part{
			TextPart{Text: "calling"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"x"}`}},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c2", Name: "update"}},
		},
	}

	calls := ev.GetFunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "lookup", calls[0].Name)
	assert.Equal(t, "update", calls[1].Name)
}

func TestEvent_IsFinalResponse(t *testing.T) {
	text := NewModelContentEvent("inv-1", "agent", NewTextContent(RoleModel, "done"))
	assert.True(t, text.IsFinalResponse())

	withCall := NewEvent("inv-1", "agent")
	withCall.Content = &Content{
		Role:  RoleModel,
		Parts: []Part{FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup"}}},
	}
	assert.False(t, withCall.IsFinalResponse())

	toolResp := NewFunctionResponseEvent("inv-1", "agent", "c1", "lookup", map[string]any{"ok": true}, nil)
	assert.False(t, toolResp.IsFinalResponse())

	synthetic := NewStatePersistEvent(map[string]any{"user:x": 1})
	assert.False(t, synthetic.IsFinalResponse())
}

func TestNewFunctionResponseEvent_Error(t *testing.T) {
	ev := NewFunctionResponseEvent("inv-1", "agent", "c1", "lookup", nil, assert.AnError)

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Equal(t, assert.AnError.Error(), responses[0].Error)
}
