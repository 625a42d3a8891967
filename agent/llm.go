package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/model"
	"github.com/hupe1980/agentpipe/tool"
)

// LLMAgentOptions configures an LLMAgent instance.
type LLMAgentOptions struct {
	// Instruction is the system instruction sent with every model request.
	Instruction string
	// Tools exposed to the model for function calling, in declaration order.
	Tools []tool.Tool
	// Callbacks are this agent's agent-scope hooks; they fire after all
	// plugin hooks of the same stage.
	Callbacks *hook.Callbacks
	// MaxModelCalls caps model calls per invocation tree as a runaway guard.
	MaxModelCalls int
}

// LLMAgent wraps a language model collaborator with tools and agent-scope
// callbacks. One Run is one agent turn: a model call, any requested tool
// executions, and further model calls until the model emits a final text
// response, the end-invocation flag is set, or the call budget is exhausted.
type LLMAgent struct {
	BaseAgent

	model         model.Model
	instruction   string
	tools         []tool.Tool
	toolsByName   map[string]tool.Tool
	callbacks     *hook.Callbacks
	maxModelCalls int
}

// NewLLMAgent constructs an LLMAgent for the given model with optional overrides.
func NewLLMAgent(name string, m model.Model, optFns ...func(o *LLMAgentOptions)) *LLMAgent {
	opts := LLMAgentOptions{
		MaxModelCalls: 25,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		byName[t.Name()] = t
	}

	return &LLMAgent{
		BaseAgent:     NewBaseAgent(name),
		model:         m,
		instruction:   opts.Instruction,
		tools:         opts.Tools,
		toolsByName:   byName,
		callbacks:     opts.Callbacks,
		maxModelCalls: opts.MaxModelCalls,
	}
}

// Callbacks returns the agent-scope hooks (may be nil).
func (a *LLMAgent) Callbacks() *hook.Callbacks { return a.callbacks }

// Tools returns the declared tools in order.
func (a *LLMAgent) Tools() []tool.Tool { return a.tools }

// Run executes one agent turn through the hook chain.
func (a *LLMAgent) Run(ictx *core.InvocationContext, chain *hook.Chain) error {
	if ictx.AgentName != a.Name() {
		ictx = ictx.Child(a.Name(), "")
	}

	override, err := chain.BeforeAgent(ictx, a.callbacks)
	if err != nil {
		return err
	}
	if override != nil {
		// The agent's entire turn is skipped; the override is the output.
		_, err := ictx.EmitEvent(core.NewModelContentEvent("", a.Name(), *override))
		return err
	}

	for {
		if ictx.Ended() {
			break
		}
		if n := ictx.CountModelCall(); n > a.maxModelCalls {
			return fmt.Errorf("agent %s exceeded model call budget (%d)", a.Name(), a.maxModelCalls)
		}

		req := a.buildRequest(ictx)

		resp, err := chain.BeforeModel(ictx, req, a.callbacks)
		if err != nil {
			return err
		}
		if resp == nil {
			resp, err = a.generate(ictx, chain, req)
			if err != nil {
				return err
			}
		}

		if out, err := chain.AfterModel(ictx, resp, a.callbacks); err != nil {
			return err
		} else if out != nil {
			resp = out
		}

		appended, err := ictx.EmitEvent(core.NewModelContentEvent("", a.Name(), resp.Content))
		if err != nil {
			return err
		}

		if ictx.Ended() {
			break
		}

		calls := appended.GetFunctionCalls()
		if len(calls) == 0 {
			break
		}
		for _, call := range calls {
			if ictx.Ended() {
				break
			}
			if err := a.executeCall(ictx, chain, call); err != nil {
				return err
			}
		}
	}

	afterOverride, err := chain.AfterAgent(ictx, a.callbacks)
	if err != nil {
		return err
	}
	if afterOverride != nil {
		if _, err := ictx.EmitEvent(core.NewModelContentEvent("", a.Name(), *afterOverride)); err != nil {
			return err
		}
	}
	return nil
}

// generate calls the model collaborator, offering failures to the
// on_model_error hooks before surfacing a ModelError.
func (a *LLMAgent) generate(ictx *core.InvocationContext, chain *hook.Chain, req *model.Request) (*model.Response, error) {
	start := time.Now()
	resp, err := a.model.Generate(ictx.Context, *req)
	if err != nil {
		fallback, herr := chain.OnModelError(ictx, req, err)
		if herr != nil {
			return nil, herr
		}
		if fallback == nil {
			return nil, core.NewModelError(a.model.Info().Name, err)
		}
		return fallback, nil
	}

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	ictx.Logger.Debug("agent.model.generated agent=%s model=%s tokens=%d duration_ms=%d",
		a.Name(), a.model.Info().Name, tokens, time.Since(start).Milliseconds())
	return resp, nil
}

// executeCall runs a single requested function call through the tool stages.
func (a *LLMAgent) executeCall(ictx *core.InvocationContext, chain *hook.Chain, call core.FunctionCall) error {
	toolCtx := core.NewToolContext(ictx, call.ID)

	t, ok := a.toolsByName[call.Name]
	if !ok {
		err := tool.NewToolError(call.Name, "unknown tool", tool.CodeValidationError)
		_, emitErr := ictx.EmitEvent(core.NewFunctionResponseEvent("", a.Name(), call.ID, call.Name, nil, err))
		if emitErr != nil {
			return emitErr
		}
		return err
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return tool.NewToolError(call.Name, fmt.Sprintf("malformed arguments: %v", err), tool.CodeValidationError)
		}
	}

	result, err := chain.BeforeTool(toolCtx, t, args, a.callbacks)
	if err != nil {
		return err
	}
	if result == nil {
		start := time.Now()
		result, err = t.Call(toolCtx, args)
		dur := time.Since(start)
		ictx.Logger.Debug("agent.tool.executed agent=%s tool=%s duration_ms=%d error=%v",
			a.Name(), call.Name, dur.Milliseconds(), err != nil)
		if err != nil {
			fallback, herr := chain.OnToolError(toolCtx, t, args, err)
			if herr != nil {
				return herr
			}
			if fallback == nil {
				// Visible failure: the error response is appended, then the
				// turn ends. Appended state changes are not rolled back.
				if _, emitErr := ictx.EmitEvent(core.NewFunctionResponseEvent("", a.Name(), call.ID, call.Name, nil, err)); emitErr != nil {
					return emitErr
				}
				return err
			}
			result = fallback
		}
	}

	if out, err := chain.AfterTool(toolCtx, t, args, result, a.callbacks); err != nil {
		return err
	} else if out != nil {
		result = out
	}

	ev := core.NewFunctionResponseEvent("", a.Name(), call.ID, call.Name, result, nil)
	ev.Actions.StateDelta = toolCtx.StateDelta()
	_, err = ictx.EmitEvent(ev)
	return err
}

// buildRequest assembles the model request from the instruction, the
// session's conversational history and the declared tools.
func (a *LLMAgent) buildRequest(ictx *core.InvocationContext) *model.Request {
	req := &model.Request{Instructions: a.instruction}

	for _, ev := range ictx.Session.History() {
		// Copy the parts so hooks that rewrite the request cannot reach
		// back into the appended events.
		parts := make([]core.Part, len(ev.Content.Parts))
		copy(parts, ev.Content.Parts)
		req.Contents = append(req.Contents, core.Content{Role: ev.Content.Role, Parts: parts})
	}

	for _, t := range a.tools {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return req
}
