package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/session"
	"github.com/hupe1980/agentpipe/tool"
)

// newTestInvocation wires a live session, store and emitter the way the
// runner does, returning the collected events via the pointer.
func newTestInvocation(t *testing.T, agentName, userText string) (*core.InvocationContext, *[]core.Event) {
	t.Helper()

	store := session.NewInMemoryStore()
	sess, err := store.Get(context.Background(), "app", "u1", "s1")
	require.NoError(t, err)

	content := core.NewTextContent(core.RoleUser, userText)
	ictx := core.NewInvocationContext(
		context.Background(),
		"app", "u1", "s1", "inv-1", agentName,
		content, sess, store, nil,
	)

	events := &[]core.Event{}
	ictx.SetEmitter(func(ev core.Event) (core.Event, error) {
		appended, err := store.AppendEvent(context.Background(), sess, ev)
		if err != nil {
			return core.Event{}, err
		}
		*events = append(*events, appended)
		return appended, nil
	})

	// seed the user turn like the runner does
	userEv := core.NewEvent("inv-1", core.AuthorUser)
	userEv.Content = &content
	_, err = ictx.EmitEvent(userEv)
	require.NoError(t, err)

	return ictx, events
}

func TestLLMAgent_SimpleTextTurn(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.AddResponse("hello", "hi there")
	a := NewLLMAgent("Assistant", mock)

	ictx, events := newTestInvocation(t, "Assistant", "hello")
	require.NoError(t, a.Run(ictx, hook.NewChain()))

	require.Len(t, *events, 2) // user + model
	final := (*events)[1]
	assert.Equal(t, "Assistant", final.Author)
	assert.True(t, final.IsFinalResponse())
	assert.Equal(t, "hi there", final.Content.Text())
	assert.Equal(t, 1, mock.Calls())
}

func TestLLMAgent_ToolCallLoop(t *testing.T) {
	lookup := tool.NewFunctionTool(
		"lookup", "Look up a value",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"q": map[string]any{"type": "string"},
			},
			"required": []string{"q"},
		},
		func(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
			tc.SetState("user:last_query", args["q"])
			return map[string]any{"answer": 42}, nil
		},
	)

	mock := model.NewMockModel("test", "mock")
	mock.EnqueueFunctionCall("c1", "lookup", `{"q":"meaning"}`)
	mock.Enqueue(model.NewTextResponse("the answer is 42"))
	a := NewLLMAgent("Assistant", mock, func(o *LLMAgentOptions) {
		o.Tools = []tool.Tool{lookup}
	})

	ictx, events := newTestInvocation(t, "Assistant", "what is the meaning?")
	require.NoError(t, a.Run(ictx, hook.NewChain()))

	// user, function call, function response, final text
	require.Len(t, *events, 4)
	assert.Len(t, (*events)[1].GetFunctionCalls(), 1)

	frEv := (*events)[2]
	responses := frEv.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "c1", responses[0].ID)
	assert.Equal(t, map[string]any{"user:last_query": "meaning"}, frEv.Actions.StateDelta)

	// the staged delta was folded into session state on append
	v, ok := ictx.Session.GetState("user:last_query")
	require.True(t, ok)
	assert.Equal(t, "meaning", v)

	assert.Equal(t, "the answer is 42", (*events)[3].Content.Text())
	assert.Equal(t, 2, mock.Calls())
}

func TestLLMAgent_BeforeAgentOverrideSkipsModel(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	a := NewLLMAgent("Assistant", mock)

	override := core.NewTextContent(core.RoleModel, "canned")
	plugin := &overridePlugin{BasePlugin: hook.NewBasePlugin("gate"), beforeAgent: &override}
	chain := hook.NewChain(plugin)

	ictx, events := newTestInvocation(t, "Assistant", "hello")
	require.NoError(t, a.Run(ictx, chain))

	require.Len(t, *events, 2)
	assert.Equal(t, "canned", (*events)[1].Content.Text())
	assert.Equal(t, 0, mock.Calls(), "a skipped agent must never reach the model")
}

type overridePlugin struct {
	hook.BasePlugin
	beforeAgent *core.Content
}

func (p *overridePlugin) BeforeAgent(*core.InvocationContext) (*core.Content, error) {
	return p.beforeAgent, nil
}

func TestLLMAgent_UnknownToolEmitsErrorResponse(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.EnqueueFunctionCall("c1", "missing", `{}`)
	a := NewLLMAgent("Assistant", mock)

	ictx, events := newTestInvocation(t, "Assistant", "go")
	err := a.Run(ictx, hook.NewChain())

	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidationError, toolErr.Code)

	// the failure is visible in the log before the turn ends
	last := (*events)[len(*events)-1]
	responses := last.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.NotEmpty(t, responses[0].Error)
}

func TestLLMAgent_ModelErrorFallback(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.FailWith(errors.New("upstream down"))
	a := NewLLMAgent("Assistant", mock)

	fallback := &fallbackPlugin{BasePlugin: hook.NewBasePlugin("fallback")}
	chain := hook.NewChain(fallback)

	ictx, events := newTestInvocation(t, "Assistant", "hello")
	require.NoError(t, a.Run(ictx, chain))

	final := (*events)[len(*events)-1]
	assert.Equal(t, "degraded mode", final.Content.Text())
}

func TestLLMAgent_ModelErrorPropagatesWithoutFallback(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.FailWith(errors.New("upstream down"))
	a := NewLLMAgent("Assistant", mock)

	ictx, _ := newTestInvocation(t, "Assistant", "hello")
	err := a.Run(ictx, hook.NewChain())

	var modelErr *core.ModelError
	require.ErrorAs(t, err, &modelErr)
}

type fallbackPlugin struct {
	hook.BasePlugin
}

func (p *fallbackPlugin) OnModelError(*core.InvocationContext, *model.Request, error) (*model.Response, error) {
	return model.NewTextResponse("degraded mode"), nil
}

func TestLLMAgent_ModelCallBudget(t *testing.T) {
	lookup := tool.NewFunctionTool(
		"lookup", "Look up a value",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	)

	mock := model.NewMockModel("test", "mock")
	// every call requests another tool round, never terminating
	for i := 0; i < 5; i++ {
		mock.EnqueueFunctionCall("c", "lookup", `{}`)
	}
	a := NewLLMAgent("Assistant", mock, func(o *LLMAgentOptions) {
		o.Tools = []tool.Tool{lookup}
		o.MaxModelCalls = 2
	})

	ictx, _ := newTestInvocation(t, "Assistant", "loop")
	err := a.Run(ictx, hook.NewChain())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call budget")
	assert.Equal(t, 2, mock.Calls())
}

func TestLLMAgent_EndInvocationStopsLoop(t *testing.T) {
	mock := model.NewMockModel("test", "mock")
	mock.EnqueueFunctionCall("c1", "lookup", `{}`)
	ender := tool.NewFunctionTool(
		"lookup", "End the turn",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
			tc.EndInvocation()
			return map[string]any{"done": true}, nil
		},
	)
	a := NewLLMAgent("Assistant", mock, func(o *LLMAgentOptions) {
		o.Tools = []tool.Tool{ender}
	})

	ictx, _ := newTestInvocation(t, "Assistant", "stop after tool")
	require.NoError(t, a.Run(ictx, hook.NewChain()))
	assert.Equal(t, 1, mock.Calls(), "no further model call after end-invocation")
	assert.True(t, ictx.Ended())
}

func TestSequentialAgent_RunsChildrenInOrder(t *testing.T) {
	m1 := model.NewMockModel("m1", "mock")
	m1.AddResponse("go", "first done")
	m2 := model.NewMockModel("m2", "mock")
	c1 := NewLLMAgent("First", m1)
	c2 := NewLLMAgent("Second", m2)
	seq := NewSequentialAgent("Pipeline", []Agent{c1, c2})

	ictx, events := newTestInvocation(t, "Pipeline", "go")
	require.NoError(t, seq.Run(ictx, hook.NewChain()))

	require.Len(t, *events, 3) // user + one model event per child
	assert.Equal(t, "First", (*events)[1].Author)
	assert.Equal(t, "Second", (*events)[2].Author)
	assert.Equal(t, 1, m1.Calls())
	assert.Equal(t, 1, m2.Calls())
}

func TestBaseAgent_Hierarchy(t *testing.T) {
	m := model.NewMockModel("m", "mock")
	child := NewLLMAgent("Child", m)
	parent := NewSequentialAgent("Parent", []Agent{child})

	assert.Equal(t, "Parent", parent.Name())
	require.Len(t, parent.SubAgents(), 1)
	assert.NotNil(t, parent.FindAgent("Child"))
	assert.Nil(t, parent.FindAgent("Ghost"))
	require.NotNil(t, child.Parent())
	assert.Equal(t, "Parent", child.Parent().Name())
}
