package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
)

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.AddResponse("hello", "hi there")

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text())
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 1, m.Calls())
}

func TestMockModel_QueueBeforeCanned(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.AddResponse("hello", "canned")
	m.EnqueueFunctionCall("c1", "lookup", `{}`)

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hello")},
	})
	require.NoError(t, err)
	assert.True(t, resp.HasFunctionCalls())

	resp, err = m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text())
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("test", "mock")
	m.FailWith(errors.New("down"))

	_, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hello")},
	})
	assert.EqualError(t, err, "down")
}

func TestNewTextResponse(t *testing.T) {
	resp := NewTextResponse("hello")
	assert.Equal(t, core.RoleModel, resp.Content.Role)
	assert.Equal(t, "hello", resp.Text())
	assert.False(t, resp.HasFunctionCalls())
}
