// Package testutil provides shared test helpers: a stage-tracing plugin and
// content builders used across package tests.
package testutil

import (
	"sync"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/tool"
)

// TracePlugin records the hook stages it observes, in order. Tests use it
// to assert stage sequencing and short-circuit behavior.
type TracePlugin struct {
	hook.BasePlugin

	mu     sync.Mutex
	stages []string
}

// NewTracePlugin creates a TracePlugin named "trace".
func NewTracePlugin() *TracePlugin {
	return &TracePlugin{BasePlugin: hook.NewBasePlugin("trace")}
}

func (p *TracePlugin) record(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stage)
}

// Stages returns the observed stage names in order.
func (p *TracePlugin) Stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *TracePlugin) OnUserMessage(*core.InvocationContext, *core.Content) (*core.Content, error) {
	p.record(hook.StageOnUserMessage.String())
	return nil, nil
}

func (p *TracePlugin) BeforeRun(*core.InvocationContext) (*core.Content, error) {
	p.record(hook.StageBeforeRun.String())
	return nil, nil
}

func (p *TracePlugin) AfterRun(*core.InvocationContext) error {
	p.record(hook.StageAfterRun.String())
	return nil
}

func (p *TracePlugin) BeforeAgent(*core.InvocationContext) (*core.Content, error) {
	p.record(hook.StageBeforeAgent.String())
	return nil, nil
}

func (p *TracePlugin) AfterAgent(*core.InvocationContext) (*core.Content, error) {
	p.record(hook.StageAfterAgent.String())
	return nil, nil
}

func (p *TracePlugin) BeforeModel(*core.InvocationContext, *model.Request) (*model.Response, error) {
	p.record(hook.StageBeforeModel.String())
	return nil, nil
}

func (p *TracePlugin) AfterModel(*core.InvocationContext, *model.Response) (*model.Response, error) {
	p.record(hook.StageAfterModel.String())
	return nil, nil
}

func (p *TracePlugin) OnModelError(*core.InvocationContext, *model.Request, error) (*model.Response, error) {
	p.record(hook.StageOnModelError.String())
	return nil, nil
}

func (p *TracePlugin) BeforeTool(*core.ToolContext, tool.Tool, map[string]any) (map[string]any, error) {
	p.record(hook.StageBeforeTool.String())
	return nil, nil
}

func (p *TracePlugin) AfterTool(*core.ToolContext, tool.Tool, map[string]any, map[string]any) (map[string]any, error) {
	p.record(hook.StageAfterTool.String())
	return nil, nil
}

func (p *TracePlugin) OnToolError(*core.ToolContext, tool.Tool, map[string]any, error) (map[string]any, error) {
	p.record(hook.StageOnToolError.String())
	return nil, nil
}

func (p *TracePlugin) OnEvent(*core.InvocationContext, *core.Event) error {
	p.record(hook.StageOnEvent.String())
	return nil
}
