package core

// ToolContext is handed to tools and tool hooks for a single function call.
// It extends the invocation context with the function call id and a staged
// state delta.
//
// Tools have two ways to mutate session state:
//   - SetState stages a delta that is attached to the function response
//     event and folded durably on append (the normal channel)
//   - Session.SetState mutates the live session directly, bypassing the
//     delta channel; such writes survive a reload only because the state
//     persistence wrapper captures them
type ToolContext struct {
	*InvocationContext

	// FunctionCallID correlates the tool execution with the originating
	// function call part.
	FunctionCallID string

	delta map[string]any
}

// NewToolContext derives a tool context for one function call.
func NewToolContext(ic *InvocationContext, functionCallID string) *ToolContext {
	return &ToolContext{
		InvocationContext: ic,
		FunctionCallID:    functionCallID,
		delta:             map[string]any{},
	}
}

// GetState returns a staged value if present, else the live session value.
func (tc *ToolContext) GetState(key string) (any, bool) {
	if v, ok := tc.delta[key]; ok {
		return v, true
	}
	if tc.Session != nil {
		return tc.Session.GetState(key)
	}
	return nil, false
}

// SetState stages a state mutation to be carried by the function response
// event's delta.
func (tc *ToolContext) SetState(key string, v any) { tc.delta[key] = v }

// StateDelta returns the staged delta, or nil when nothing was staged.
func (tc *ToolContext) StateDelta() map[string]any {
	if len(tc.delta) == 0 {
		return nil
	}
	out := make(map[string]any, len(tc.delta))
	for k, v := range tc.delta {
		out[k] = v
	}
	return out
}
