// Package hook implements the interception chain wrapped around every agent,
// model and tool call of an invocation. Hooks come in two scopes: Plugins
// registered once on the runner apply tree-wide; Callbacks attached to one
// agent fire only for that agent. Per stage all plugin hooks run first in
// registration order, then the agent callback; the first non-nil override
// stops the stage and substitutes the real operation.
package hook

// Stage identifies one interception point in the invocation pipeline. The
// set is closed: dispatch is by typed method contract, never by reflection
// or attribute probing.
type Stage int

const (
	// StageOnUserMessage fires when the user turn enters the pipeline,
	// before anything is persisted.
	StageOnUserMessage Stage = iota
	// StageBeforeRun fires once per invocation before the root agent runs.
	StageBeforeRun
	// StageBeforeAgent fires before an agent (root or nested) takes its turn.
	StageBeforeAgent
	// StageAfterAgent fires after an agent's turn completes.
	StageAfterAgent
	// StageBeforeModel fires before the model collaborator is called.
	StageBeforeModel
	// StageAfterModel fires after a successful model call.
	StageAfterModel
	// StageOnModelError fires only when the model call fails.
	StageOnModelError
	// StageBeforeTool fires before a tool executes.
	StageBeforeTool
	// StageAfterTool fires after a successful tool execution.
	StageAfterTool
	// StageOnToolError fires only when a tool raises.
	StageOnToolError
	// StageAfterRun fires once per invocation after the root agent finished.
	StageAfterRun
	// StageOnEvent fires after every event appended to the session log.
	StageOnEvent
)

var stageNames = map[Stage]string{
	StageOnUserMessage: "on_user_message",
	StageBeforeRun:     "before_run",
	StageBeforeAgent:   "before_agent",
	StageAfterAgent:    "after_agent",
	StageBeforeModel:   "before_model",
	StageAfterModel:    "after_model",
	StageOnModelError:  "on_model_error",
	StageBeforeTool:    "before_tool",
	StageAfterTool:     "after_tool",
	StageOnToolError:   "on_tool_error",
	StageAfterRun:      "after_run",
	StageOnEvent:       "on_event",
}

// String returns the snake_case stage name.
func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}
