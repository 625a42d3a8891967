package hook

import (
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/tool"
)

// Plugin is the tree-wide hook scope: registered once on the runner, its
// stages apply to every agent, model call and tool call anywhere in the
// invocation tree.
//
// Override semantics per stage:
//   - OnUserMessage: non-nil replaces the incoming user content
//   - BeforeRun / BeforeAgent: non-nil skips the run/agent turn; the
//     override becomes the visible output
//   - BeforeModel: non-nil is used as the model response; the collaborator
//     is never called
//   - AfterModel: non-nil replaces the live response (same structural shape
//     required: same role, same number and kind of parts)
//   - BeforeTool: non-nil is used as the tool result; the tool never runs
//   - AfterTool: non-nil replaces the live result
//   - OnModelError / OnToolError: non-nil supplies a fallback and the
//     invocation proceeds as if it were the real result; nil re-raises
//   - AfterAgent: non-nil appends replacement output for the agent
//
// Returning an error from any hook aborts the stage and propagates.
// Embed BasePlugin to implement only the stages you need.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	OnUserMessage(ictx *core.InvocationContext, content *core.Content) (*core.Content, error)
	BeforeRun(ictx *core.InvocationContext) (*core.Content, error)
	AfterRun(ictx *core.InvocationContext) error

	BeforeAgent(ictx *core.InvocationContext) (*core.Content, error)
	AfterAgent(ictx *core.InvocationContext) (*core.Content, error)

	BeforeModel(ictx *core.InvocationContext, req *model.Request) (*model.Response, error)
	AfterModel(ictx *core.InvocationContext, resp *model.Response) (*model.Response, error)
	OnModelError(ictx *core.InvocationContext, req *model.Request, callErr error) (*model.Response, error)

	BeforeTool(toolCtx *core.ToolContext, t tool.Tool, args map[string]any) (map[string]any, error)
	AfterTool(toolCtx *core.ToolContext, t tool.Tool, args, result map[string]any) (map[string]any, error)
	OnToolError(toolCtx *core.ToolContext, t tool.Tool, args map[string]any, callErr error) (map[string]any, error)

	OnEvent(ictx *core.InvocationContext, ev *core.Event) error
}

// BasePlugin provides no-op implementations of every stage. Embed it and
// override only the stages your plugin participates in.
type BasePlugin struct {
	PluginName string
}

// NewBasePlugin creates a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin { return BasePlugin{PluginName: name} }

// Name returns the plugin name.
func (p BasePlugin) Name() string { return p.PluginName }

// OnUserMessage is a no-op.
func (BasePlugin) OnUserMessage(*core.InvocationContext, *core.Content) (*core.Content, error) {
	return nil, nil
}

// BeforeRun is a no-op.
func (BasePlugin) BeforeRun(*core.InvocationContext) (*core.Content, error) { return nil, nil }

// AfterRun is a no-op.
func (BasePlugin) AfterRun(*core.InvocationContext) error { return nil }

// BeforeAgent is a no-op.
func (BasePlugin) BeforeAgent(*core.InvocationContext) (*core.Content, error) { return nil, nil }

// AfterAgent is a no-op.
func (BasePlugin) AfterAgent(*core.InvocationContext) (*core.Content, error) { return nil, nil }

// BeforeModel is a no-op.
func (BasePlugin) BeforeModel(*core.InvocationContext, *model.Request) (*model.Response, error) {
	return nil, nil
}

// AfterModel is a no-op.
func (BasePlugin) AfterModel(*core.InvocationContext, *model.Response) (*model.Response, error) {
	return nil, nil
}

// OnModelError re-raises by default.
func (BasePlugin) OnModelError(*core.InvocationContext, *model.Request, error) (*model.Response, error) {
	return nil, nil
}

// BeforeTool is a no-op.
func (BasePlugin) BeforeTool(*core.ToolContext, tool.Tool, map[string]any) (map[string]any, error) {
	return nil, nil
}

// AfterTool is a no-op.
func (BasePlugin) AfterTool(*core.ToolContext, tool.Tool, map[string]any, map[string]any) (map[string]any, error) {
	return nil, nil
}

// OnToolError re-raises by default.
func (BasePlugin) OnToolError(*core.ToolContext, tool.Tool, map[string]any, error) (map[string]any, error) {
	return nil, nil
}

// OnEvent is a no-op.
func (BasePlugin) OnEvent(*core.InvocationContext, *core.Event) error { return nil }
