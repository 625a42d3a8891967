package tool

import (
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// pipeline tool.
//
// Responsibilities:
//   - holds a JSON-Schema-like parameter specification
//   - validates supplied arguments against that schema before execution
//   - invokes the wrapped function with a *core.ToolContext giving access to
//     session state, staged deltas and the function call id
//   - normalizes error handling so callers receive *ToolError with
//     consistent codes (VALIDATION_ERROR, EXECUTION_ERROR; custom codes are
//     preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	stageTool := NewFunctionTool(
//	  "update_deal",
//	  "Update the stage of the active deal",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "stage": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"stage"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
//	    tc.SetState("deal.stage", args["stage"])
//	    return map[string]any{"ok": true}, nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection; a convenience for simple argument containers.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the model-facing description.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the argument schema.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the schema then invokes the wrapped function.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		if ve, ok := err.(*util.ValidationError); ok {
			return nil, &ToolError{Tool: t.name, Message: ve.Message, Code: CodeValidationError, Err: ve}
		}
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeValidationError, Err: err}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		if te, ok := err.(*ToolError); ok {
			return nil, te
		}
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecutionError, Err: err}
	}
	return result, nil
}
