package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/event"
	"github.com/hupe1980/agentgate/logging"
)

// Options holds overrides passed to NewOrchestrator().
type Options struct {
	// BufferSize sets channel buffering for emitted frames.
	BufferSize int
	// Logger receives stream diagnostics.
	Logger logging.Logger
}

// Orchestrator turns backend query streams into framed sequences. It holds no
// per-request state; one instance serves all concurrent requests.
type Orchestrator struct {
	bufferSize int
	logger     logging.Logger
}

// NewOrchestrator constructs an Orchestrator with optional overrides.
func NewOrchestrator(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{BufferSize: 16, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{bufferSize: opts.BufferSize, logger: opts.Logger}
}

// StreamQuery starts a streaming query against client and returns the frame
// sequence. The channel always yields a message_start frame first, then one
// frame per backend event in arrival order, and closes after a terminal
// message_complete or error frame. Mid-stream failures become the terminal
// error frame; they are never surfaced as a Go error past this boundary.
// Cancelling ctx stops backend consumption promptly.
func (o *Orchestrator) StreamQuery(ctx context.Context, client engine.Client, agentID, userID, sessionID, message string) <-chan Frame {
	frames := make(chan Frame, o.bufferSize)

	go func() {
		defer close(frames)

		send := func(f Frame) bool {
			select {
			case frames <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var startSessionID any
		if sessionID != "" {
			startSessionID = sessionID
		}
		if !send(Frame{
			Event: event.TypeMessageStart,
			Data:  map[string]any{"session_id": startSessionID, "user_id": userID},
		}) {
			return
		}

		content := core.Content{Role: core.RoleUser, Parts: []core.Part{core.TextPart{Text: message}}}
		backend, err := client.StreamQuery(ctx, agentID, userID, sessionID, content)
		if err != nil {
			o.logger.Error("stream query failed to start", "agent_id", agentID, "error", err)
			send(Frame{Event: event.TypeError, Data: map[string]any{"error": err.Error()}})
			return
		}
		defer backend.Close()

		for {
			item, err := backend.Recv(ctx)
			if errors.Is(err, engine.Done) {
				break
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				o.logger.Error("stream query failed", "agent_id", agentID, "error", err)
				send(Frame{Event: event.TypeError, Data: map[string]any{"error": err.Error()}})
				return
			}
			n := event.Normalize(item)
			if !send(Frame{Event: event.Classify(n), ID: event.ID(n), Data: n}) {
				return
			}
		}

		send(Frame{Event: event.TypeMessageComplete, Data: map[string]any{"status": "completed"}})
	}()

	return frames
}

// Query drives the same backend stream as StreamQuery and aggregates it: all
// text parts concatenate into one response string in arrival order, every
// normalized event is collected, the session id resolves to the first one
// observed on the stream (falling back to a generated placeholder), and the
// most recent usage_metadata wins. A backend failure before a terminal state
// surfaces as an AgentEngineError.
func (o *Orchestrator) Query(ctx context.Context, client engine.Client, agentID, userID, sessionID, message string) (*QueryResult, error) {
	content := core.Content{Role: core.RoleUser, Parts: []core.Part{core.TextPart{Text: message}}}
	backend, err := client.StreamQuery(ctx, agentID, userID, sessionID, content)
	if err != nil {
		return nil, core.EngineError(fmt.Sprintf("query failed: %s", err), err)
	}
	defer backend.Close()

	result := &QueryResult{SessionID: sessionID, Events: []map[string]any{}}
	for {
		item, err := backend.Recv(ctx)
		if errors.Is(err, engine.Done) {
			break
		}
		if err != nil {
			return nil, core.EngineError(fmt.Sprintf("query failed: %s", err), err)
		}
		n := event.Normalize(item)
		result.Events = append(result.Events, n)
		result.Response += event.Text(n)
		if result.SessionID == "" {
			if sid, ok := n["session_id"].(string); ok && sid != "" {
				result.SessionID = sid
			}
		}
	}

	if result.SessionID == "" {
		result.SessionID = "new-session-" + userID
	}
	// Most recent usage wins: scan in reverse arrival order.
	for i := len(result.Events) - 1; i >= 0; i-- {
		if usage, ok := result.Events[i]["usage_metadata"].(map[string]any); ok {
			result.UsageMetadata = usage
			break
		}
	}
	return result, nil
}
