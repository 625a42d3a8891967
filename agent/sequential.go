package agent

import (
	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
)

// SequentialAgent executes its sub-agents in declaration order. Each child
// repeats the before_agent … after_agent stages with its own agent-scope
// callbacks; the composite itself also passes through those stages, so a
// plugin override can skip the whole subtree. The end-invocation flag stops
// the sequence between children.
type SequentialAgent struct {
	BaseAgent

	callbacks *hook.Callbacks
}

// SequentialAgentOptions configures a SequentialAgent.
type SequentialAgentOptions struct {
	Callbacks *hook.Callbacks
}

// NewSequentialAgent constructs a sequential composite over the given children.
func NewSequentialAgent(name string, children []Agent, optFns ...func(o *SequentialAgentOptions)) *SequentialAgent {
	opts := SequentialAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &SequentialAgent{
		BaseAgent: NewBaseAgent(name),
		callbacks: opts.Callbacks,
	}
	_ = a.SetSubAgents(children...)
	return a
}

// Callbacks returns the composite's agent-scope hooks (may be nil).
func (a *SequentialAgent) Callbacks() *hook.Callbacks { return a.callbacks }

// Run executes each child in order through the hook chain.
func (a *SequentialAgent) Run(ictx *core.InvocationContext, chain *hook.Chain) error {
	if ictx.AgentName != a.Name() {
		ictx = ictx.Child(a.Name(), "")
	}

	override, err := chain.BeforeAgent(ictx, a.callbacks)
	if err != nil {
		return err
	}
	if override != nil {
		_, err := ictx.EmitEvent(core.NewModelContentEvent("", a.Name(), *override))
		return err
	}

	for _, child := range a.SubAgents() {
		if ictx.Ended() {
			break
		}
		childCtx := ictx.Child(child.Name(), a.Name()+"."+child.Name())
		if err := child.Run(childCtx, chain); err != nil {
			return err
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
