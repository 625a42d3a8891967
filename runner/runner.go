// Package runner orchestrates one user turn end to end: hook stages around
// the root agent, the session event log, and the invocation-scoped context
// shared by everything the turn touches.
package runner

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentpipe/agent"
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/session"
)

// Options configures a Runner.
type Options struct {
	// AppName scopes sessions; defaults to the root agent's name.
	AppName string
	// SessionStore persists sessions and events. Defaults to an in-memory
	// store wrapped with state persistence.
	SessionStore core.SessionStore
	// Plugins are the tree-wide hooks, executed in the given order.
	Plugins []hook.Plugin
	// Logger receives pipeline diagnostics. Nil means no-op.
	Logger logging.Logger
}

// Runner drives invocations of a root agent. Safe for concurrent use across
// sessions; turns of the same session must be serialized by the caller (the
// HTTP server does this per request).
type Runner struct {
	agent    agent.Agent
	appName  string
	sessions core.SessionStore
	chain    *hook.Chain
	logger   logging.Logger
}

// New creates a Runner for the root agent.
func New(a agent.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		AppName: a.Name(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewStatePersistStore(session.NewInMemoryStore(), opts.Logger)
	}

	chain := hook.NewChain(opts.Plugins...)
	chain.SetLogger(opts.Logger)

	return &Runner{
		agent:    a,
		appName:  opts.AppName,
		sessions: opts.SessionStore,
		chain:    chain,
		logger:   opts.Logger,
	}
}

// WithAppName overrides the application name used for session scoping.
func WithAppName(name string) func(o *Options) {
	return func(o *Options) { o.AppName = name }
}

// WithSessionStore sets the session store.
func WithSessionStore(store core.SessionStore) func(o *Options) {
	return func(o *Options) { o.SessionStore = store }
}

// WithPlugins registers tree-wide hook plugins in execution order.
func WithPlugins(plugins ...hook.Plugin) func(o *Options) {
	return func(o *Options) { o.Plugins = append(o.Plugins, plugins...) }
}

// WithLogger sets the runner logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// RunOptions configures a single turn.
type RunOptions struct {
	// StateSeed is applied to the live session before the turn starts.
	// Temp-scoped keys seeded here are visible to hooks and tools but are
	// never persisted.
	StateSeed map[string]any
}

// WithStateSeed seeds session state for this turn.
func WithStateSeed(seed map[string]any) func(o *RunOptions) {
	return func(o *RunOptions) { o.StateSeed = seed }
}

// Result is the outcome of one completed turn.
type Result struct {
	InvocationID string
	// Events are the events appended during this turn, in emission order.
	Events []core.Event
}

// FinalText returns the text of the last final response event, or "".
func (r *Result) FinalText() string {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].IsFinalResponse() {
			return r.Events[i].Content.Text()
		}
	}
	return ""
}

// Chain exposes the hook chain, mainly for tests asserting registration.
func (r *Runner) Chain() *hook.Chain { return r.chain }

// SessionStore exposes the configured store.
func (r *Runner) SessionStore() core.SessionStore { return r.sessions }

// Run executes one user turn:
//
//	on_user_message -> append user event -> before_run -> root agent
//	-> after_run
//
// A non-nil before_run override skips the root agent; its content becomes
// the visible output. after_run fires only when the turn succeeded.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, content core.Content, optFns ...func(o *RunOptions)) (*Result, error) {
	var runOpts RunOptions
	for _, fn := range optFns {
		fn(&runOpts)
	}

	if sessionID == "" {
		sessionID = core.NewID()
	}

	sess, err := r.sessions.Get(ctx, r.appName, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess.SetState(core.StateKeyUserID, userID)
	sess.SetState(core.StateKeySessionID, sessionID)
	for k, v := range runOpts.StateSeed {
		sess.SetState(k, v)
	}

	invocationID := core.NewID()
	ictx := core.NewInvocationContext(ctx, r.appName, userID, sessionID, invocationID, r.agent.Name(), content, sess, r.sessions, r.logger)

	result := &Result{InvocationID: invocationID}
	ictx.SetEmitter(func(ev core.Event) (core.Event, error) {
		appended, err := r.sessions.AppendEvent(ctx, sess, ev)
		if err != nil {
			return core.Event{}, err
		}
		result.Events = append(result.Events, appended)
		if err := r.chain.OnEvent(ictx, &appended); err != nil {
			return appended, err
		}
		return appended, nil
	})

	if override, err := r.chain.OnUserMessage(ictx, &content); err != nil {
		return result, err
	} else if override != nil {
		content = *override
		ictx.UserContent = content
	}

	userEv := core.NewEvent(invocationID, core.AuthorUser)
	userEv.Content = &content
	if _, err := ictx.EmitEvent(userEv); err != nil {
		return result, fmt.Errorf("append user event: %w", err)
	}

	override, err := r.chain.BeforeRun(ictx)
	if err != nil {
		return result, err
	}
	if override != nil {
		if _, err := ictx.EmitEvent(core.NewModelContentEvent(invocationID, r.agent.Name(), *override)); err != nil {
			return result, err
		}
	} else {
		if err := r.agent.Run(ictx, r.chain); err != nil {
			return result, err
		}
	}

	if err := r.chain.AfterRun(ictx); err != nil {
		return result, err
	}
	return result, nil
}
