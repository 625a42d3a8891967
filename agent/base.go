// Package agent provides the agent implementations driven by the invocation
// pipeline: LLMAgent wraps a model with tools and agent-scope callbacks;
// SequentialAgent composes sub-agents executed in order, each repeating the
// before/after agent stages.
package agent

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/hook"
)

// Agent is the executable unit of the invocation tree. Run performs one turn
// for this agent, emitting events through the invocation context and driving
// every model/tool call through the hook chain.
type Agent interface {
	Name() string
	Description() string
	Run(ictx *core.InvocationContext, chain *hook.Chain) error
}

// BaseAgent bundles shared identity and hierarchy management. Embed it in
// concrete agent implementations and supply a Run method to satisfy Agent.
// All exported methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	mu          sync.Mutex
	parent      Agent
	subAgents   []Agent
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// SetSubAgents atomically replaces the child agent set, clearing previous
// parent links then assigning this agent as the parent of each new child.
// It enforces a single-parent invariant for all managed children.
func (b *BaseAgent) SetSubAgents(children ...Agent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subAgents {
		if setter, ok := child.(interface{ setParent(Agent) }); ok {
			setter.setParent(nil)
		}
	}
	b.subAgents = nil

	for _, child := range children {
		if setter, ok := child.(interface{ setParent(Agent) }); ok {
			setter.setParent(&agentWrapper{b})
		}
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

// setParent sets the internal parent reference.
func (b *BaseAgent) setParent(p Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the current parent agent or nil if this agent is root.
func (b *BaseAgent) Parent() Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a shallow copy of current child agents for safe iteration.
func (b *BaseAgent) SubAgents() []Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (including itself) returning the first agent whose Name matches.
// Returns nil if no match is found.
func (b *BaseAgent) FindAgent(name string) Agent {
	if b.name == name {
		return &agentWrapper{b}
	}

	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if finder, ok := child.(interface{ FindAgent(string) Agent }); ok {
			if found := finder.FindAgent(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// agentWrapper wraps BaseAgent to satisfy Agent for hierarchy references.
type agentWrapper struct{ *BaseAgent }

// Run rejects direct execution of a bare BaseAgent.
func (w *agentWrapper) Run(*core.InvocationContext, *hook.Chain) error {
	return fmt.Errorf("cannot execute BaseAgent directly - embed it in a concrete agent with Run implementation")
}
