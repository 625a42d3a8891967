// Package agentpipe provides a high-level façade over the runner and its
// services (sessions, hook plugins, logging) enabling rapid construction of
// hook-instrumented agent pipelines. Most applications interact with this
// package by:
//  1. Creating an AgentPipe via New() around a root agent (optionally
//     overriding the default in-memory session store and plugins)
//  2. Invoking turns with Invoke (full result) or InvokeText (final text)
//
// The façade delegates orchestration to runner.Runner while keeping setup
// ergonomics concise. The default session store is an in-memory store
// wrapped with state persistence, safe for local development and testing;
// production deployments typically supply the SQLite-backed store and a
// structured logger.
package agentpipe

import (
	"context"

	"github.com/hupe1980/agentpipe/agent"
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/runner"
	"github.com/hupe1980/agentpipe/session"
)

// Options configures the AgentPipe instance.
type Options struct {
	// AppName scopes sessions; defaults to the root agent's name.
	AppName string
	// SessionStore defaults to an in-memory store wrapped with state
	// persistence.
	SessionStore core.SessionStore
	// Plugins are the tree-wide hooks in execution order.
	Plugins []hook.Plugin
	// Logger defaults to NoOp if nil.
	Logger logging.Logger
}

// AgentPipe is the high-level façade aggregating the runner and its services.
type AgentPipe struct {
	runner *runner.Runner
}

// New creates an AgentPipe around the root agent with optional overrides.
// Any unset service falls back to a safe in-memory default.
func New(a agent.Agent, optFns ...func(o *Options)) *AgentPipe {
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

	r := runner.New(a,
		runner.WithAppName(opts.AppName),
		runner.WithSessionStore(opts.SessionStore),
		runner.WithPlugins(opts.Plugins...),
		runner.WithLogger(opts.Logger),
	)
	return &AgentPipe{runner: r}
}

// Runner exposes the underlying runner for advanced use (HTTP serving).
func (p *AgentPipe) Runner() *runner.Runner { return p.runner }

// Invoke runs one user turn and returns the full result.
func (p *AgentPipe) Invoke(ctx context.Context, userID, sessionID, message string, optFns ...func(o *runner.RunOptions)) (*runner.Result, error) {
	content := core.NewTextContent(core.RoleUser, message)
	return p.runner.Run(ctx, userID, sessionID, content, optFns...)
}

// InvokeText runs one user turn and returns the final response text.
func (p *AgentPipe) InvokeText(ctx context.Context, userID, sessionID, message string) (string, error) {
	result, err := p.Invoke(ctx, userID, sessionID, message)
	if err != nil {
		return "", err
	}
	return result.FinalText(), nil
}
