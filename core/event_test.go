package core

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestEvent_Constructors(t *testing.T) {
	e := NewEvent("inv-123", "authorA")
	if e.Author != "authorA" || e.InvocationID != "inv-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	user := NewUserMessageEvent("inv-1", "hi")
	if user.Author != AuthorUser || user.Content == nil || user.Content.Role != RoleUser {
		t.Fatalf("NewUserMessageEvent malformed: %+v", user)
	}
	if tp, ok := user.Content.Parts[0].(TextPart); !ok || tp.Text != "hi" {
		t.Fatalf("expected single text part, got %+v", user.Content.Parts)
	}
}

func TestNewStateUpdateEvent(t *testing.T) {
	delta := map[string]any{"theme": "dark", "count": 2}
	e := NewStateUpdateEvent(delta)

	if e.Author != AuthorSystem {
		t.Errorf("state update events must be system authored, got %q", e.Author)
	}
	if !strings.HasPrefix(e.InvocationID, "state-update-") {
		t.Errorf("unexpected invocation id %q", e.InvocationID)
	}
	if e.ID != SynthesizedEventID(e.InvocationID, e.Timestamp) {
		t.Errorf("event id %q not derived from invocation id and timestamp", e.ID)
	}
	if e.Content == nil || e.Content.Parts[0].(TextPart).Text != "State updated: 2 keys" {
		t.Errorf("missing or wrong summary text: %+v", e.Content)
	}
	if len(e.Actions.StateDelta) != 2 {
		t.Errorf("state delta not carried: %+v", e.Actions)
	}

	// Concurrent updates must never collide on invocation id.
	if other := NewStateUpdateEvent(delta); other.InvocationID == e.InvocationID {
		t.Errorf("invocation ids must be unique per call, both %q", e.InvocationID)
	}
}

func TestSynthesizedEventID(t *testing.T) {
	ts := time.Unix(1700000000, 500*int64(time.Millisecond))
	got := SynthesizedEventID("inv-9", ts)
	want := fmt.Sprintf("inv-9-%d", ts.UnixMilli())
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEventActions_IsZero(t *testing.T) {
	if !(EventActions{}).IsZero() {
		t.Error("empty actions should be zero")
	}
	if (EventActions{StateDelta: map[string]any{"k": 1}}).IsZero() {
		t.Error("actions with state delta should not be zero")
	}
	esc := false
	if (EventActions{Escalate: &esc}).IsZero() {
		t.Error("actions with escalate set should not be zero")
	}
}

func TestEvent_UnixSeconds(t *testing.T) {
	e := Event{Timestamp: time.Unix(1700000000, 250000000)}
	if got := e.UnixSeconds(); got != 1700000000.25 {
		t.Fatalf("got %v", got)
	}
}

func TestEvent_IsPartial(t *testing.T) {
	e := NewEvent("inv", "agent")
	if e.IsPartial() {
		t.Error("unset partial flag should report false")
	}
	p := true
	e.Partial = &p
	if !e.IsPartial() {
		t.Error("set partial flag should report true")
	}
}
