// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema validated arguments, consistent
// error handling and metadata for model guidance.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/internal/util"
)

// Tool is a named callable accepting a structured argument mapping and a
// handle to session state (via ToolContext); it returns a structured result
// mapping or an error.
//
// Implementations should provide descriptive names (snake_case), a JSON
// schema for parameters, and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier used in function call declarations
	// and routing.
	Name() string

	// Description is provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments have been validated against the
	// tool's schema.
	Call(toolCtx *core.ToolContext, args map[string]any) (map[string]any, error)
}

// ValidationError represents parameter validation errors with details.
type ValidationError = util.ValidationError

// ToolError represents errors raised during tool execution. It is offered to
// the on_tool_error hooks before propagating to the caller.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Error codes used by FunctionTool.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
)
