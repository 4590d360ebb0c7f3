package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/event"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/registry"
	"github.com/hupe1980/agentgate/stream"
)

// Options holds overrides passed to NewService().
type Options struct {
	Logger logging.Logger
	// PollInterval is the backend polling cadence used by Tail.
	PollInterval time.Duration
}

// Service performs event-log operations through registry handles.
type Service struct {
	registry     *registry.Registry
	logger       logging.Logger
	pollInterval time.Duration
}

// NewService constructs an event-log Service.
func NewService(reg *registry.Registry, optFns ...func(o *Options)) *Service {
	opts := Options{Logger: logging.NoOpLogger{}, PollInterval: 2 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{registry: reg, logger: opts.Logger, pollInterval: opts.PollInterval}
}

// AppendRequest describes one event to append.
type AppendRequest struct {
	UserID          string
	Author          string
	InvocationID    string
	Timestamp       float64
	ContentText     string
	ContentRole     string
	StateDelta      map[string]any
	ArtifactDelta   map[string]int
	TransferToAgent *string
	Escalate        *bool
}

// AppendResult reports the synthesized event id and the session state after
// the append.
type AppendResult struct {
	EventID      string         `json:"event_id"`
	SessionState map[string]any `json:"session_state"`
	Success      bool           `json:"success"`
}

// Turn pairs one user message with the agent message that answered it. Agent
// is nil when the conversation moved on before an agent reply.
type Turn struct {
	User  map[string]any `json:"user"`
	Agent map[string]any `json:"agent"`
}

// Append appends one event built from req to the session's log and returns
// the resulting session state.
func (s *Service) Append(ctx context.Context, agentID, sessionID string, req AppendRequest) (*AppendResult, error) {
	if req.Author == "" {
		return nil, core.EventAppendError(errors.New("author is required"))
	}
	if req.InvocationID == "" {
		return nil, core.EventAppendError(errors.New("invocation_id is required"))
	}

	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if req.Timestamp > 0 {
		ts = time.Unix(0, int64(req.Timestamp*float64(time.Second))).UTC()
	}
	ev := core.Event{
		ID:           core.SynthesizedEventID(req.InvocationID, ts),
		Author:       req.Author,
		InvocationID: req.InvocationID,
		Timestamp:    ts,
		Actions: core.EventActions{
			StateDelta:      req.StateDelta,
			ArtifactDelta:   req.ArtifactDelta,
			TransferToAgent: req.TransferToAgent,
			Escalate:        req.Escalate,
		},
	}
	if req.ContentText != "" {
		role := req.ContentRole
		if role == "" {
			role = core.RoleUser
		}
		ev.Content = &core.Content{Role: role, Parts: []core.Part{core.TextPart{Text: req.ContentText}}}
	}

	if err := h.Client.AppendEvent(ctx, agentID, sessionID, ev); err != nil {
		if engine.IsNotFound(err) {
			return nil, core.SessionNotFoundError(sessionID)
		}
		return nil, core.EventAppendError(err)
	}
	s.logger.Info("appended event", "session_id", sessionID, "author", req.Author, "invocation_id", req.InvocationID)

	sess, err := h.Client.GetSession(ctx, agentID, sessionID)
	if err != nil {
		return nil, core.EventAppendError(err)
	}
	return &AppendResult{EventID: ev.ID, SessionState: sess.State, Success: true}, nil
}

// List walks the session's event log with offset/limit semantics. Skipped
// items are counted but never normalized, and iteration stops as soon as
// limit items are collected; the backend result set is never materialized
// beyond what the window needs.
func (s *Service) List(ctx context.Context, agentID, sessionID string, limit, offset int) ([]map[string]any, error) {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	it, err := h.Client.ListEvents(ctx, agentID, sessionID)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil, core.SessionNotFoundError(sessionID)
		}
		return nil, core.EngineError(fmt.Sprintf("failed to list events: %s", err), err)
	}

	events := []map[string]any{}
	skipped := 0
	for {
		if limit > 0 && len(events) >= limit {
			break
		}
		item, err := it.Next(ctx)
		if errors.Is(err, engine.Done) {
			break
		}
		if err != nil {
			if engine.IsNotFound(err) {
				return nil, core.SessionNotFoundError(sessionID)
			}
			return nil, core.EngineError(fmt.Sprintf("failed to list events: %s", err), err)
		}
		if skipped < offset {
			skipped++
			continue
		}
		events = append(events, event.Normalize(item))
	}
	return events, nil
}

// Get returns the normalized event with the given id.
func (s *Service) Get(ctx context.Context, agentID, sessionID, eventID string) (map[string]any, error) {
	events, err := s.List(ctx, agentID, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if event.ID(ev) == eventID {
			return ev, nil
		}
	}
	return nil, core.EventNotFoundError(eventID)
}

// Delete reports that the backend keeps event logs append-only.
func (s *Service) Delete(ctx context.Context, agentID, sessionID, eventID string) error {
	return core.EventAppendError(errors.New("the agent engine backend does not support deleting individual events"))
}

// Conversation formats the session's event log into user/agent turns. A new
// turn starts whenever a user event appears while the current turn already
// holds a user message; agent- or model-authored events fill the open turn's
// agent slot; a trailing incomplete turn is flushed. maxTurns keeps only the
// most recent turns when positive.
func (s *Service) Conversation(ctx context.Context, agentID, sessionID string, maxTurns int) ([]Turn, error) {
	events, err := s.List(ctx, agentID, sessionID, 0, 0)
	if err != nil {
		return nil, err
	}

	turns := []Turn{}
	current := Turn{}
	for _, ev := range events {
		switch event.Author(ev) {
		case core.AuthorUser:
			if current.User != nil {
				turns = append(turns, current)
				current = Turn{}
			}
			current.User = ev
		case core.AuthorAgent, core.AuthorModel:
			current.Agent = ev
		}
	}
	if current.User != nil {
		turns = append(turns, current)
	}

	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	return turns, nil
}

// Tail polls the backend event log and emits a classified frame for every
// event appended after startTimestamp, until ctx is cancelled. Failures
// terminate the sequence with an error frame, matching the streaming error
// channel everywhere else.
func (s *Service) Tail(ctx context.Context, agentID, sessionID string, startTimestamp float64) <-chan stream.Frame {
	frames := make(chan stream.Frame)

	go func() {
		defer close(frames)

		send := func(f stream.Frame) bool {
			select {
			case frames <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		watermark := startTimestamp
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			events, err := s.List(ctx, agentID, sessionID, 0, 0)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				send(stream.Frame{Event: event.TypeError, Data: map[string]any{"error": err.Error()}})
				return
			}
			for _, ev := range events {
				ts := event.Timestamp(ev)
				if ts <= watermark {
					continue
				}
				if !send(stream.Frame{Event: event.Classify(ev), ID: event.ID(ev), Data: ev}) {
					return
				}
				if ts > watermark {
					watermark = ts
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return frames
}
