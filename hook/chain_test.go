package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/model"
)

// recordingPlugin records which of its stages ran, optionally overriding
// before_model and after_model.
type recordingPlugin struct {
	BasePlugin

	calls          []string
	beforeModelOut *model.Response
	afterModelOut  *model.Response
	modelErrOut    *model.Response
}

func newRecordingPlugin(name string) *recordingPlugin {
	return &recordingPlugin{BasePlugin: NewBasePlugin(name)}
}

func (p *recordingPlugin) BeforeModel(*core.InvocationContext, *model.Request) (*model.Response, error) {
	p.calls = append(p.calls, p.Name()+".before_model")
	return p.beforeModelOut, nil
}

func (p *recordingPlugin) AfterModel(*core.InvocationContext, *model.Response) (*model.Response, error) {
	p.calls = append(p.calls, p.Name()+".after_model")
	return p.afterModelOut, nil
}

func (p *recordingPlugin) OnModelError(*core.InvocationContext, *model.Request, error) (*model.Response, error) {
	p.calls = append(p.calls, p.Name()+".on_model_error")
	return p.modelErrOut, nil
}

func (p *recordingPlugin) BeforeAgent(*core.InvocationContext) (*core.Content, error) {
	p.calls = append(p.calls, p.Name()+".before_agent")
	return nil, nil
}

func newTestInvocation() *core.InvocationContext {
	sess := core.NewSession("app", "u1", "s1")
	return core.NewInvocationContext(
		context.Background(),
		"app", "u1", "s1", "inv-1", "agent",
		core.NewTextContent(core.RoleUser, "hi"),
		sess, nil, nil,
	)
}

func TestChain_BeforeModelRunsPluginsInRegistrationOrder(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	p2 := newRecordingPlugin("p2")
	chain := NewChain(p1, p2)

	var cbCalled bool
	cb := &Callbacks{BeforeModel: func(*core.InvocationContext, *model.Request) (*model.Response, error) {
		cbCalled = true
		return nil, nil
	}}

	out, err := chain.BeforeModel(newTestInvocation(), &model.Request{}, cb)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, []string{"p1.before_model"}, p1.calls)
	assert.Equal(t, []string{"p2.before_model"}, p2.calls)
	assert.True(t, cbCalled, "agent callback runs after all plugins")
}

func TestChain_BeforeModelShortCircuits(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	p1.beforeModelOut = model.NewTextResponse("cached")
	p2 := newRecordingPlugin("p2")
	chain := NewChain(p1, p2)

	var cbCalled bool
	cb := &Callbacks{BeforeModel: func(*core.InvocationContext, *model.Request) (*model.Response, error) {
		cbCalled = true
		return nil, nil
	}}

	out, err := chain.BeforeModel(newTestInvocation(), &model.Request{}, cb)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "cached", out.Text())
	assert.Empty(t, p2.calls, "later plugins must not run after an override")
	assert.False(t, cbCalled, "agent callback must not run after a plugin override")
}

func TestChain_AfterModelShapeCheck(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	p1.afterModelOut = &model.Response{Content: core.Content{
		Role: core.RoleModel,
		Parts: []core.Part{
			core.TextPart{Text: "a"},
			core.TextPart{Text: "b"},
		},
	}}
	chain := NewChain(p1)

	resp := model.NewTextResponse("original")
	out, err := chain.AfterModel(newTestInvocation(), resp, nil)
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "part count")
}

func TestChain_AfterModelSameShapeRewrite(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	p1.afterModelOut = model.NewTextResponse("rewritten")
	chain := NewChain(p1)

	out, err := chain.AfterModel(newTestInvocation(), model.NewTextResponse("original"), nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "rewritten", out.Text())
}

func TestChain_OnModelErrorFallback(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	p2 := newRecordingPlugin("p2")
	p2.modelErrOut = model.NewTextResponse("fallback")
	chain := NewChain(p1, p2)

	out, err := chain.OnModelError(newTestInvocation(), &model.Request{}, errors.New("boom"))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "fallback", out.Text())
}

func TestChain_OnModelErrorNilReRaises(t *testing.T) {
	chain := NewChain(newRecordingPlugin("p1"))

	out, err := chain.OnModelError(newTestInvocation(), &model.Request{}, errors.New("boom"))
	require.NoError(t, err)
	assert.Nil(t, out, "nil fallback means the original error propagates")
}

func TestChain_BeforeAgentCallbackAfterPlugins(t *testing.T) {
	p1 := newRecordingPlugin("p1")
	chain := NewChain(p1)

	override := core.NewTextContent(core.RoleModel, "skipped")
	cb := &Callbacks{BeforeAgent: func(*core.InvocationContext) (*core.Content, error) {
		return &override, nil
	}}

	out, err := chain.BeforeAgent(newTestInvocation(), cb)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "skipped", out.Text())
	assert.Equal(t, []string{"p1.before_agent"}, p1.calls)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "on_user_message", StageOnUserMessage.String())
	assert.Equal(t, "on_event", StageOnEvent.String())
	assert.Equal(t, "unknown", Stage(99).String())
}
