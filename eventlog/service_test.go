package eventlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/event"
	"github.com/hupe1980/agentgate/internal/testutil"
	"github.com/hupe1980/agentgate/registry"
	"github.com/hupe1980/agentgate/stream"
)

func newTestRegistry(fake *testutil.FakeClient) *registry.Registry {
	cfg := config.Default()
	cfg.GoogleCloud.Project = "proj"
	cfg.Agents = []config.Agent{
		{AgentID: "agent-1", Name: "engine-1", Enabled: true},
	}
	return registry.New(cfg, func(ctx context.Context, a config.Agent) (engine.Client, error) {
		return fake, nil
	})
}

func rawEvents(n int) []any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"id":        fmt.Sprintf("e%d", i),
			"author":    "agent",
			"timestamp": float64(1000 + i),
		})
	}
	return items
}

func TestService_Append(t *testing.T) {
	fake := &testutil.FakeClient{
		Session: &core.Session{ID: "sess-1", State: map[string]any{"k": "v"}},
	}
	svc := NewService(newTestRegistry(fake))

	result, err := svc.Append(context.Background(), "agent-1", "sess-1", AppendRequest{
		Author:       "user",
		InvocationID: "inv-1",
		Timestamp:    1700000000.5,
		ContentText:  "hello",
		StateDelta:   map[string]any{"seen": true},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, map[string]any{"k": "v"}, result.SessionState)

	require.Len(t, fake.Appended, 1)
	ev := fake.Appended[0]
	assert.Equal(t, "user", ev.Author)
	assert.Equal(t, core.SynthesizedEventID("inv-1", ev.Timestamp), ev.ID)
	assert.Equal(t, result.EventID, ev.ID)
	assert.Equal(t, int64(1700000000500), ev.Timestamp.UnixMilli())
	require.NotNil(t, ev.Content)
	assert.Equal(t, core.RoleUser, ev.Content.Role, "role defaults to user")
	assert.Equal(t, map[string]any{"seen": true}, ev.Actions.StateDelta)
}

func TestService_AppendValidation(t *testing.T) {
	svc := NewService(newTestRegistry(&testutil.FakeClient{}))

	_, err := svc.Append(context.Background(), "agent-1", "sess-1", AppendRequest{InvocationID: "inv"})
	assert.Equal(t, core.KindEventAppend, core.KindOf(err))

	_, err = svc.Append(context.Background(), "agent-1", "sess-1", AppendRequest{Author: "user"})
	assert.Equal(t, core.KindEventAppend, core.KindOf(err))
}

func TestService_AppendSessionNotFound(t *testing.T) {
	fake := &testutil.FakeClient{AppendErr: &engine.APIError{StatusCode: 404, Message: "gone"}}
	svc := NewService(newTestRegistry(fake))

	_, err := svc.Append(context.Background(), "agent-1", "missing", AppendRequest{
		Author: "user", InvocationID: "inv-1",
	})
	assert.Equal(t, core.KindSessionNotFound, core.KindOf(err))
}

func TestService_ListWindow(t *testing.T) {
	fake := &testutil.FakeClient{Events: rawEvents(7)}
	svc := NewService(newTestRegistry(fake))

	events, err := svc.List(context.Background(), "agent-1", "sess-1", 3, 2)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// Skip the first two, then take three.
	assert.Equal(t, "e2", event.ID(events[0]))
	assert.Equal(t, "e3", event.ID(events[1]))
	assert.Equal(t, "e4", event.ID(events[2]))

	// Iteration stops as soon as the window is full; the tail is never pulled.
	assert.Equal(t, 5, fake.NextCalls)
}

func TestService_ListNoLimit(t *testing.T) {
	fake := &testutil.FakeClient{Events: rawEvents(4)}
	svc := NewService(newTestRegistry(fake))

	events, err := svc.List(context.Background(), "agent-1", "sess-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestService_ListOffsetPastEnd(t *testing.T) {
	fake := &testutil.FakeClient{Events: rawEvents(2)}
	svc := NewService(newTestRegistry(fake))

	events, err := svc.List(context.Background(), "agent-1", "sess-1", 10, 5)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestService_Get(t *testing.T) {
	fake := &testutil.FakeClient{Events: rawEvents(3)}
	svc := NewService(newTestRegistry(fake))

	ev, err := svc.Get(context.Background(), "agent-1", "sess-1", "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", event.ID(ev))

	_, err = svc.Get(context.Background(), "agent-1", "sess-1", "nope")
	assert.Equal(t, core.KindEventNotFound, core.KindOf(err))
}

func TestService_DeleteUnsupported(t *testing.T) {
	svc := NewService(newTestRegistry(&testutil.FakeClient{}))

	err := svc.Delete(context.Background(), "agent-1", "sess-1", "e1")
	require.Error(t, err)
	assert.Equal(t, core.KindEventAppend, core.KindOf(err))
}

func conversationEvent(id, author, text string) map[string]any {
	return map[string]any{
		"id": id, "author": author,
		"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
	}
}

func TestService_ConversationPairing(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		conversationEvent("e1", "user", "q1"),
		conversationEvent("e2", "agent", "a1"),
		conversationEvent("e3", "user", "q2"),
		conversationEvent("e4", "user", "q3"),
		conversationEvent("e5", "model", "a2"),
	}}
	svc := NewService(newTestRegistry(fake))

	turns, err := svc.Conversation(context.Background(), "agent-1", "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, "e1", event.ID(turns[0].User))
	assert.Equal(t, "e2", event.ID(turns[0].Agent))

	// q2 was superseded by q3 before any agent reply.
	assert.Equal(t, "e3", event.ID(turns[1].User))
	assert.Nil(t, turns[1].Agent)

	assert.Equal(t, "e4", event.ID(turns[2].User))
	assert.Equal(t, "e5", event.ID(turns[2].Agent))
}

func TestService_ConversationMaxTurns(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		conversationEvent("e1", "user", "q1"),
		conversationEvent("e2", "agent", "a1"),
		conversationEvent("e3", "user", "q2"),
		conversationEvent("e4", "agent", "a2"),
	}}
	svc := NewService(newTestRegistry(fake))

	turns, err := svc.Conversation(context.Background(), "agent-1", "sess-1", 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "e3", event.ID(turns[0].User), "most recent turns are kept")
}

func TestService_ConversationIgnoresSystemEvents(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		conversationEvent("e1", "user", "q1"),
		conversationEvent("e2", "system", "State updated: 1 keys"),
		conversationEvent("e3", "agent", "a1"),
	}}
	svc := NewService(newTestRegistry(fake))

	turns, err := svc.Conversation(context.Background(), "agent-1", "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "e3", event.ID(turns[0].Agent))
}

func TestService_Tail(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		map[string]any{"id": "e0", "author": "agent", "timestamp": float64(100)},
		map[string]any{"id": "e1", "author": "agent", "timestamp": float64(200)},
		map[string]any{"id": "e2", "author": "agent", "timestamp": float64(300), "actions": map[string]any{
			"state_delta": map[string]any{"k": 1},
		}},
	}}
	svc := NewService(newTestRegistry(fake), func(o *Options) {
		o.PollInterval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames := svc.Tail(ctx, "agent-1", "sess-1", 100)

	var got []stream.Frame
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-timeout:
			t.Fatal("timed out waiting for tailed events")
		}
	}

	// Only events after the watermark are emitted, classified like any other
	// stream frame.
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, event.TypeContentDelta, got[0].Event)
	assert.Equal(t, "e2", got[1].ID)
	assert.Equal(t, event.TypeStateUpdate, got[1].Event)

	// The watermark advances: another poll cycle must not re-emit anything.
	select {
	case f := <-frames:
		t.Fatalf("unexpected duplicate frame %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}
