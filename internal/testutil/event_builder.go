package testutil

import (
	"time"

	"github.com/hupe1980/agentgate/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("agent").Invocation("inv-1").AgentText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author        string
	invocationID  string
	id            string
	timestamp     time.Time
	role          string
	textParts     []string
	funcCalls     []core.FunctionCallPart
	funcResponses []core.FunctionResponsePart
	partial       *bool
	turnComplete  *bool
	customParts   []core.Part
	actions       core.EventActions
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: core.AuthorAgent} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Invocation sets the invocation ID associated with the event (chainable).
func (b *EventBuilder) Invocation(id string) *EventBuilder { b.invocationID = id; return b }

// ID overrides the auto-generated event ID (chainable). Use mainly in tests where determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// At sets the event timestamp (chainable).
func (b *EventBuilder) At(ts time.Time) *EventBuilder { b.timestamp = ts; return b }

// Partial marks the event as a streaming / partial chunk (chainable).
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// TurnComplete sets the TurnComplete flag indicating turn completion (chainable).
func (b *EventBuilder) TurnComplete(c bool) *EventBuilder { b.turnComplete = &c; return b }

// UserText appends a user role text part and sets author/role to user (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.author = core.AuthorUser
	b.role = core.RoleUser
	b.textParts = append(b.textParts, t)
	return b
}

// AgentText appends a model role text part (chainable).
func (b *EventBuilder) AgentText(t string) *EventBuilder {
	b.role = core.RoleModel
	b.textParts = append(b.textParts, t)
	return b
}

// AddPart appends a custom content part (chainable).
func (b *EventBuilder) AddPart(p core.Part) *EventBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// FunctionCall adds a function call part with the provided name and arguments (chainable).
func (b *EventBuilder) FunctionCall(name string, args map[string]any) *EventBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCallPart{Name: name, Args: args})
	return b
}

// FunctionResponse adds a function response part representing tool execution output (chainable).
func (b *EventBuilder) FunctionResponse(name string, response map[string]any) *EventBuilder {
	b.funcResponses = append(b.funcResponses, core.FunctionResponsePart{Name: name, Response: response})
	return b
}

// StateDelta sets the state delta carried by the event's actions (chainable).
func (b *EventBuilder) StateDelta(delta map[string]any) *EventBuilder {
	b.actions.StateDelta = delta
	return b
}

// Escalate sets the Escalate action flag (chainable).
func (b *EventBuilder) Escalate() *EventBuilder { t := true; b.actions.Escalate = &t; return b }

// Transfer sets the target agent for a transfer action (chainable).
func (b *EventBuilder) Transfer(to string) *EventBuilder { b.actions.TransferToAgent = &to; return b }

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.invocationID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	if !b.timestamp.IsZero() {
		ev.Timestamp = b.timestamp
	}
	if b.partial != nil {
		ev.Partial = b.partial
	}
	if b.turnComplete != nil {
		ev.TurnComplete = b.turnComplete
	}
	ev.Actions = b.actions

	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses)+len(b.customParts))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, fc)
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, fr)
	}
	parts = append(parts, b.customParts...)
	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = core.RoleModel
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}
	return ev
}
