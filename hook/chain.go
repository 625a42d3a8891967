package hook

import (
	"fmt"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/tool"
)

// Chain dispatches hook stages across the registered plugins and, per
// stage, the active agent's callbacks. Registration order defines plugin
// execution order. The Chain is not safe for concurrent registration; once
// registration is complete, stage execution is safe for concurrent use
// across independent invocations.
type Chain struct {
	plugins []Plugin
	logger  logging.Logger
}

// NewChain creates a chain with the given plugins in registration order.
func NewChain(plugins ...Plugin) *Chain {
	return &Chain{plugins: plugins, logger: logging.NoOpLogger{}}
}

// SetLogger installs a logger used for stage tracing.
func (c *Chain) SetLogger(l logging.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Register appends a plugin to the chain.
func (c *Chain) Register(p Plugin) { c.plugins = append(c.plugins, p) }

// Plugins returns the registered plugins in execution order.
func (c *Chain) Plugins() []Plugin { return c.plugins }

// OnUserMessage offers the incoming user content to every plugin; the first
// non-nil return replaces it and stops the stage.
func (c *Chain) OnUserMessage(ictx *core.InvocationContext, content *core.Content) (*core.Content, error) {
	for _, p := range c.plugins {
		out, err := p.OnUserMessage(ictx, content)
		if err != nil {
			return nil, fmt.Errorf("plugin %s on_user_message: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Debug("hook.on_user_message overridden plugin=%s", p.Name())
			return out, nil
		}
	}
	return nil, nil
}

// BeforeRun runs the before_run stage; a non-nil override skips the root
// agent entirely.
func (c *Chain) BeforeRun(ictx *core.InvocationContext) (*core.Content, error) {
	for _, p := range c.plugins {
		out, err := p.BeforeRun(ictx)
		if err != nil {
			return nil, fmt.Errorf("plugin %s before_run: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Debug("hook.before_run overridden plugin=%s", p.Name())
			return out, nil
		}
	}
	return nil, nil
}

// AfterRun notifies every plugin that the invocation finished.
func (c *Chain) AfterRun(ictx *core.InvocationContext) error {
	for _, p := range c.plugins {
		if err := p.AfterRun(ictx); err != nil {
			return fmt.Errorf("plugin %s after_run: %w", p.Name(), err)
		}
	}
	return nil
}

// BeforeAgent runs plugin hooks then the agent callback. A non-nil override
// skips the agent's entire turn; the override becomes the visible output.
func (c *Chain) BeforeAgent(ictx *core.InvocationContext, cb *Callbacks) (*core.Content, error) {
	for _, p := range c.plugins {
		out, err := p.BeforeAgent(ictx)
		if err != nil {
			return nil, fmt.Errorf("plugin %s before_agent: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Debug("hook.before_agent overridden plugin=%s agent=%s", p.Name(), ictx.AgentName)
			return out, nil
		}
	}
	if cb != nil && cb.BeforeAgent != nil {
		out, err := cb.BeforeAgent(ictx)
		if err != nil {
			return nil, fmt.Errorf("agent %s before_agent: %w", ictx.AgentName, err)
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// AfterAgent runs plugin hooks then the agent callback; a non-nil return
// supplies replacement output for the completed agent turn.
func (c *Chain) AfterAgent(ictx *core.InvocationContext, cb *Callbacks) (*core.Content, error) {
	for _, p := range c.plugins {
		out, err := p.AfterAgent(ictx)
		if err != nil {
			return nil, fmt.Errorf("plugin %s after_agent: %w", p.Name(), err)
		}
		if out != nil {
			return out, nil
		}
	}
	if cb != nil && cb.AfterAgent != nil {
		out, err := cb.AfterAgent(ictx)
		if err != nil {
			return nil, fmt.Errorf("agent %s after_agent: %w", ictx.AgentName, err)
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// BeforeModel runs plugin hooks then the agent callback. A non-nil override
// is used as the model response; the collaborator is never called.
func (c *Chain) BeforeModel(ictx *core.InvocationContext, req *model.Request, cb *Callbacks) (*model.Response, error) {
	for _, p := range c.plugins {
		out, err := p.BeforeModel(ictx, req)
		if err != nil {
			return nil, fmt.Errorf("plugin %s before_model: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Debug("hook.before_model overridden plugin=%s agent=%s", p.Name(), ictx.AgentName)
			return out, nil
		}
	}
	if cb != nil && cb.BeforeModel != nil {
		out, err := cb.BeforeModel(ictx, req)
		if err != nil {
			return nil, fmt.Errorf("agent %s before_model: %w", ictx.AgentName, err)
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// AfterModel runs plugin hooks then the agent callback against the live
// response. The first non-nil return replaces the response and stops the
// stage; a replacement must preserve structural shape (same role, same
// number and kind of content parts) so later consumers are unaffected.
// Hooks that only rewrite text in place return nil to let later hooks run.
func (c *Chain) AfterModel(ictx *core.InvocationContext, resp *model.Response, cb *Callbacks) (*model.Response, error) {
	for _, p := range c.plugins {
		out, err := p.AfterModel(ictx, resp)
		if err != nil {
			return nil, fmt.Errorf("plugin %s after_model: %w", p.Name(), err)
		}
		if out != nil {
			if err := sameShape(resp.Content, out.Content); err != nil {
				return nil, fmt.Errorf("plugin %s after_model rewrite: %w", p.Name(), err)
			}
			return out, nil
		}
	}
	if cb != nil && cb.AfterModel != nil {
		out, err := cb.AfterModel(ictx, resp)
		if err != nil {
			return nil, fmt.Errorf("agent %s after_model: %w", ictx.AgentName, err)
		}
		if out != nil {
			if err := sameShape(resp.Content, out.Content); err != nil {
				return nil, fmt.Errorf("agent %s after_model rewrite: %w", ictx.AgentName, err)
			}
			return out, nil
		}
	}
	return nil, nil
}

// OnModelError offers the failed model call to every plugin; the first
// non-nil return supplies a fallback response and the invocation proceeds.
// A nil result re-raises to the caller.
func (c *Chain) OnModelError(ictx *core.InvocationContext, req *model.Request, callErr error) (*model.Response, error) {
	for _, p := range c.plugins {
		out, err := p.OnModelError(ictx, req, callErr)
		if err != nil {
			return nil, fmt.Errorf("plugin %s on_model_error: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Info("hook.on_model_error fallback plugin=%s agent=%s", p.Name(), ictx.AgentName)
			return out, nil
		}
	}
	return nil, nil
}

// BeforeTool runs plugin hooks then the agent callback. A non-nil override
// is used as the tool result; the tool is never invoked.
func (c *Chain) BeforeTool(toolCtx *core.ToolContext, t tool.Tool, args map[string]any, cb *Callbacks) (map[string]any, error) {
	for _, p := range c.plugins {
		out, err := p.BeforeTool(toolCtx, t, args)
		if err != nil {
			return nil, fmt.Errorf("plugin %s before_tool: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Debug("hook.before_tool overridden plugin=%s tool=%s", p.Name(), t.Name())
			return out, nil
		}
	}
	if cb != nil && cb.BeforeTool != nil {
		out, err := cb.BeforeTool(toolCtx, t, args)
		if err != nil {
			return nil, fmt.Errorf("agent %s before_tool: %w", toolCtx.AgentName, err)
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// AfterTool runs plugin hooks then the agent callback against the live tool
// result; the first non-nil return replaces it.
func (c *Chain) AfterTool(toolCtx *core.ToolContext, t tool.Tool, args, result map[string]any, cb *Callbacks) (map[string]any, error) {
	for _, p := range c.plugins {
		out, err := p.AfterTool(toolCtx, t, args, result)
		if err != nil {
			return nil, fmt.Errorf("plugin %s after_tool: %w", p.Name(), err)
		}
		if out != nil {
			return out, nil
		}
	}
	if cb != nil && cb.AfterTool != nil {
		out, err := cb.AfterTool(toolCtx, t, args, result)
		if err != nil {
			return nil, fmt.Errorf("agent %s after_tool: %w", toolCtx.AgentName, err)
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// OnToolError offers the failed tool call to every plugin; the first
// non-nil return supplies a fallback result. A nil result re-raises.
func (c *Chain) OnToolError(toolCtx *core.ToolContext, t tool.Tool, args map[string]any, callErr error) (map[string]any, error) {
	for _, p := range c.plugins {
		out, err := p.OnToolError(toolCtx, t, args, callErr)
		if err != nil {
			return nil, fmt.Errorf("plugin %s on_tool_error: %w", p.Name(), err)
		}
		if out != nil {
			c.logger.Info("hook.on_tool_error fallback plugin=%s tool=%s", p.Name(), t.Name())
			return out, nil
		}
	}
	return nil, nil
}

// OnEvent notifies every plugin about an appended event. Notification only:
// the event is already durable and immutable.
func (c *Chain) OnEvent(ictx *core.InvocationContext, ev *core.Event) error {
	for _, p := range c.plugins {
		if err := p.OnEvent(ictx, ev); err != nil {
			return fmt.Errorf("plugin %s on_event: %w", p.Name(), err)
		}
	}
	return nil
}

// sameShape verifies a rewrite preserved role and the number/kind of parts.
func sameShape(orig, rewrite core.Content) error {
	if orig.Role != rewrite.Role {
		return fmt.Errorf("rewrite changed role %q to %q", orig.Role, rewrite.Role)
	}
	if len(orig.Parts) != len(rewrite.Parts) {
		return fmt.Errorf("rewrite changed part count %d to %d", len(orig.Parts), len(rewrite.Parts))
	}
	for i := range orig.Parts {
		if partKind(orig.Parts[i]) != partKind(rewrite.Parts[i]) {
			return fmt.Errorf("rewrite changed kind of part %d", i)
		}
	}
	return nil
}

func partKind(p core.Part) string {
	switch p.(type) {
	case core.TextPart:
		return "text"
	case core.FunctionCallPart:
		return "function_call"
	case core.FunctionResponsePart:
		return "function_response"
	default:
		return "unknown"
	}
}
