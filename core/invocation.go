package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentpipe/logging"
)

// InvocationContext carries the per-invocation execution scope threaded
// through every hook stage, agent, model and tool call of one user turn.
// It aggregates:
//   - the ambient cancellation Context
//   - identifiers (app, user, session, invocation) and the active agent name
//   - the live working Session and its backing SessionStore
//   - the event emitter the runner installs (append + on_event dispatch)
//   - the end-invocation flag and an invocation-scoped value bag that hooks
//     use to carry data from one stage to a later one
//
// Within one invocation stages execute strictly sequentially, but the value
// bag and flags are still mutex-guarded: nested sub-agent contexts share
// them with the parent.
type InvocationContext struct {
	Context      context.Context
	AppName      string
	UserID       string
	SessionID    string
	InvocationID string
	AgentName    string
	Branch       string
	UserContent  Content
	Session      *Session
	Sessions     SessionStore
	Logger       logging.Logger

	shared *invocationShared
}

// invocationShared holds the mutable state all contexts of one invocation
// tree point at.
type invocationShared struct {
	mu            sync.Mutex
	endInvocation bool
	values        map[string]any
	emit          func(Event) (Event, error)
	modelCalls    int
}

// NewInvocationContext constructs the root context for one user turn.
func NewInvocationContext(
	ctx context.Context,
	appName, userID, sessionID, invocationID, agentName string,
	userContent Content,
	sess *Session,
	sessions SessionStore,
	logger logging.Logger,
) *InvocationContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &InvocationContext{
		Context:      ctx,
		AppName:      appName,
		UserID:       userID,
		SessionID:    sessionID,
		InvocationID: invocationID,
		AgentName:    agentName,
		UserContent:  userContent,
		Session:      sess,
		Sessions:     sessions,
		Logger:       logger,
		shared:       &invocationShared{values: map[string]any{}},
	}
}

// SetEmitter installs the runner's append path: persist the event, fire
// on_event hooks, collect it for the caller. Nested contexts share it.
func (ic *InvocationContext) SetEmitter(emit func(Event) (Event, error)) {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	ic.shared.emit = emit
}

// EmitEvent appends the event through the runner's installed emitter,
// stamping the invocation id when absent.
func (ic *InvocationContext) EmitEvent(ev Event) (Event, error) {
	ic.shared.mu.Lock()
	emit := ic.shared.emit
	ic.shared.mu.Unlock()
	if emit == nil {
		return Event{}, fmt.Errorf("no event emitter installed")
	}
	if ev.InvocationID == "" {
		ev.InvocationID = ic.InvocationID
	}
	return emit(ev)
}

// EndInvocation sets the flag that suppresses all further model and tool
// calls for this invocation. Already-in-flight nested calls complete; their
// results are discarded by the caller.
func (ic *InvocationContext) EndInvocation() {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	ic.shared.endInvocation = true
}

// Ended reports whether the end-invocation flag is set.
func (ic *InvocationContext) Ended() bool {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	return ic.shared.endInvocation
}

// SetValue stores an invocation-scoped value. Hooks use this instead of
// process-wide lookup tables, so concurrent invocations cannot collide.
func (ic *InvocationContext) SetValue(key string, v any) {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	ic.shared.values[key] = v
}

// Value returns an invocation-scoped value and its existence flag.
func (ic *InvocationContext) Value(key string) (any, bool) {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	v, ok := ic.shared.values[key]
	return v, ok
}

// DeleteValue removes an invocation-scoped value.
func (ic *InvocationContext) DeleteValue(key string) {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	delete(ic.shared.values, key)
}

// CountModelCall increments and returns the number of model calls made in
// this invocation tree. The agent loop uses it to enforce its call budget.
func (ic *InvocationContext) CountModelCall() int {
	ic.shared.mu.Lock()
	defer ic.shared.mu.Unlock()
	ic.shared.modelCalls++
	return ic.shared.modelCalls
}

// Child derives a context for a nested agent execution. It shares the
// session, emitter, value bag and end-invocation flag with the parent while
// carrying the child's agent name and branch label.
func (ic *InvocationContext) Child(agentName, branch string) *InvocationContext {
	finalBranch := ic.Branch
	if branch != "" {
		finalBranch = branch
	}
	return &InvocationContext{
		Context:      ic.Context,
		AppName:      ic.AppName,
		UserID:       ic.UserID,
		SessionID:    ic.SessionID,
		InvocationID: ic.InvocationID,
		AgentName:    agentName,
		Branch:       finalBranch,
		UserContent:  ic.UserContent,
		Session:      ic.Session,
		Sessions:     ic.Sessions,
		Logger:       ic.Logger,
		shared:       ic.shared,
	}
}

// Done mirrors context.Context's Done.
func (ic *InvocationContext) Done() <-chan struct{} { return ic.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (ic *InvocationContext) Err() error { return ic.Context.Err() }
