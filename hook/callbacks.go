package hook

import (
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/tool"
)

// Callbacks is the agent hook scope: attached to one specific agent, its
// funcs fire only for that agent's own turn, model calls and tool calls.
// They always run after every plugin hook of the same stage, and only if
// no plugin short-circuited the stage first.
//
// All fields are optional; a nil func is skipped. Override semantics match
// the Plugin stage of the same name.
type Callbacks struct {
	BeforeAgent func(ictx *core.InvocationContext) (*core.Content, error)
	AfterAgent  func(ictx *core.InvocationContext) (*core.Content, error)

	BeforeModel func(ictx *core.InvocationContext, req *model.Request) (*model.Response, error)
	AfterModel  func(ictx *core.InvocationContext, resp *model.Response) (*model.Response, error)

	BeforeTool func(toolCtx *core.ToolContext, t tool.Tool, args map[string]any) (map[string]any, error)
	AfterTool  func(toolCtx *core.ToolContext, t tool.Tool, args, result map[string]any) (map[string]any, error)
}
