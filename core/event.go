package core

import (
	"time"

	"github.com/google/uuid"
)

// Authors used for events the pipeline itself emits.
const (
	AuthorUser   = "user"
	AuthorSystem = "system"
)

// StatePersistInvocationID is the sentinel invocation id carried by synthetic
// state persistence events (see session.StatePersistStore). Events with this
// id, the system author and empty content are never treated as conversation.
const StatePersistInvocationID = "state_persist"

// EventActions encodes side effects attached to an Event. All fields are
// optional so absence can be distinguished from zero values. The store folds
// StateDelta into session state atomically with the log append.
type EventActions struct {
	StateDelta    map[string]any `json:"state_delta,omitempty"`
	EndInvocation *bool          `json:"end_invocation,omitempty"`
}

// Event is one atomic record in a session's log: a message, a tool
// call/response, or a pure state update. After emission it is immutable; the
// log is append-only and never reordered. Timestamp is UTC.
type Event struct {
	ID           string       `json:"id"`
	InvocationID string       `json:"invocation_id"`
	Author       string       `json:"author"`
	Actions      EventActions `json:"actions"`
	Timestamp    time.Time    `json:"timestamp"`
	Content      *Content     `json:"content,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to an invocation.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
		Actions:      EventActions{},
	}
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(invocationID, message string) Event {
	e := NewEvent(invocationID, AuthorUser)
	c := NewTextContent(RoleUser, message)
	e.Content = &c
	return e
}

// NewModelContentEvent creates an event carrying a model response authored by
// the given agent.
func NewModelContentEvent(invocationID, author string, content Content) Event {
	e := NewEvent(invocationID, author)
	e.Content = &content
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a tool
// invocation. If err is non-nil its message is copied into the response.
func NewFunctionResponseEvent(invocationID, author, id, name string, result map[string]any, err error) Event {
	e := NewEvent(invocationID, author)
	fr := FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewStatePersistEvent builds the synthetic zero-content event that carries a
// tool-mutated state delta into durable storage.
func NewStatePersistEvent(delta map[string]any) Event {
	e := NewEvent(StatePersistInvocationID, AuthorSystem)
	e.Actions.StateDelta = delta
	return e
}

// NewID generates a unique identifier for events, invocations and sessions.
func NewID() string { return uuid.NewString() }

// IsStatePersist reports whether the event is a synthetic state persistence
// event: sentinel invocation id, system author, empty content.
func (e Event) IsStatePersist() bool {
	return e.InvocationID == StatePersistInvocationID &&
		e.Author == AuthorSystem &&
		(e.Content == nil || len(e.Content.Parts) == 0)
}

// GetFunctionCalls returns any FunctionCall parts in original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts in original order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether the event completes a model turn: no
// pending function calls or responses and conversational content present.
func (e Event) IsFinalResponse() bool {
	if e.Content == nil {
		return false
	}
	return len(e.GetFunctionCalls()) == 0 && len(e.GetFunctionResponses()) == 0
}
