// Package model defines the normalized request/response types exchanged with
// language model collaborators plus the Model interface flows drive. Vendor
// adapters live in the anthropic and openai subpackages; MockModel serves
// tests and demos.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentpipe/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the agent loop.
// Contents is the exact ordered conversation the collaborator will see;
// hooks may rewrite it in place before the call.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage counters for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed model turn: role "model" content with ordered text
// and/or function-call parts.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// HasFunctionCalls reports whether the response contains a function-call part.
func (r *Response) HasFunctionCalls() bool {
	for _, p := range r.Content.Parts {
		if _, ok := p.(core.FunctionCallPart); ok {
			return true
		}
	}
	return false
}

// Text concatenates the response's text parts in order.
func (r *Response) Text() string { return r.Content.Text() }

// NewTextResponse builds a role-model single-text-part response. The cache
// plugin uses it to synthesize hits.
func NewTextResponse(text string) *Response {
	return &Response{Content: core.NewTextContent(core.RoleModel, text)}
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate is a
// suspension point: the invocation's control flow yields until the
// collaborator completes or fails.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It matches canned responses against the last text content of the request,
// supports queueing arbitrary responses (e.g. function calls) and counts
// invocations so tests can assert at-most-once semantics.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	queue     []*Response
	failWith  error
	calls     int
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends a response returned (FIFO) before any canned matching.
func (m *MockModel) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// EnqueueFunctionCall queues a response requesting execution of the named tool.
func (m *MockModel) EnqueueFunctionCall(id, name, args string) {
	m.Enqueue(&Response{
		Content: core.Content{
			Role: core.RoleModel,
			Parts: []core.Part{core.FunctionCallPart{
				FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args},
			}},
		},
		FinishReason: "tool_calls",
	})
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.failWith != nil {
		return nil, m.failWith
	}

	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}

	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("no contents provided")
	}

	var inputText string
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if t := req.Contents[i].Text(); t != "" {
			inputText = t
			break
		}
	}

	full, ok := m.responses[inputText]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return &Response{
		Content:      core.NewTextContent(core.RoleModel, full),
		FinishReason: "stop",
		Usage:        &TokenUsage{PromptTokens: len(inputText), CompletionTokens: len(full), TotalTokens: len(inputText) + len(full)},
	}, nil
}

// Info returns the mock's metadata.
func (m *MockModel) Info() Info { return m.info }
