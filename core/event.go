package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known event author values. The backend accepts arbitrary authors; the
// gateway itself only synthesizes "system" and "user" events and pairs
// conversation turns on "user" vs "agent"/"model".
const (
	AuthorUser   = "user"
	AuthorAgent  = "agent"
	AuthorModel  = "model"
	AuthorSystem = "system"
	AuthorTool   = "tool"
)

// EventActions encodes side-effects attached to an Event. All fields are
// optional pointers / maps so absence can be distinguished from zero values.
// The backend applies the StateDelta to session state on append; the gateway
// never applies it locally.
type EventActions struct {
	StateDelta      map[string]any `json:"state_delta,omitempty"`
	ArtifactDelta   map[string]int `json:"artifact_delta,omitempty"`
	TransferToAgent *string        `json:"transfer_to_agent,omitempty"`
	Escalate        *bool          `json:"escalate,omitempty"`
}

// IsZero reports whether no action field is set.
func (a EventActions) IsZero() bool {
	return len(a.StateDelta) == 0 &&
		len(a.ArtifactDelta) == 0 &&
		a.TransferToAgent == nil &&
		a.Escalate == nil
}

// Event is one immutable record of a session's append-only log. Appending an
// event is the only sanctioned way to change a session's state: the backend
// folds each event's Actions.StateDelta into the session key by key, treating
// a nil value as a key deletion.
//
// ID is backend-assigned for events it produces; the gateway derives a
// deterministic one (see SynthesizedEventID) for events it must synthesize.
// Events within a session stay in the backend's append order.
type Event struct {
	ID           string       `json:"id"`
	Author       string       `json:"author"`
	InvocationID string       `json:"invocation_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Content      *Content     `json:"content,omitempty"`
	Actions      EventActions `json:"actions,omitempty"`
	Partial      *bool        `json:"partial,omitempty"`
	TurnComplete *bool        `json:"turn_complete,omitempty"`
	FinishReason *string      `json:"finish_reason,omitempty"`
}

// NewEvent creates a bare event authored by author bound to an invocation.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
	}
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(invocationID, message string) Event {
	e := NewEvent(invocationID, AuthorUser)
	e.Content = &Content{Role: RoleUser, Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewStateUpdateEvent synthesizes the system-authored event that carries a
// state delta. Each call gets a fresh invocation id so concurrent updates to
// the same session never collide, and a short human-readable summary so the
// event log stays legible.
func NewStateUpdateEvent(delta map[string]any) Event {
	e := NewEvent(NewStateInvocationID(), AuthorSystem)
	e.Content = &Content{
		Role:  RoleSystem,
		Parts: []Part{TextPart{Text: fmt.Sprintf("State updated: %d keys", len(delta))}},
	}
	e.Actions.StateDelta = delta
	e.ID = SynthesizedEventID(e.InvocationID, e.Timestamp)
	return e
}

// NewID generates a new unique identifier.
func NewID() string { return uuid.NewString() }

// NewStateInvocationID returns a per-call unique invocation id for
// synthesized state-update events.
func NewStateInvocationID() string {
	return "state-update-" + uuid.NewString()[:8]
}

// SynthesizedEventID derives a deterministic event id from an invocation id
// and a timestamp, for events the gateway creates before the backend has
// assigned one.
func SynthesizedEventID(invocationID string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", invocationID, ts.UnixMilli())
}

// IsPartial reports whether this event is a streaming fragment that will be
// followed by additional events composing the final turn.
func (e Event) IsPartial() bool { return e.Partial != nil && *e.Partial }

// UnixSeconds returns the timestamp as fractional seconds since the Unix
// epoch, the numeric form used on the wire.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
