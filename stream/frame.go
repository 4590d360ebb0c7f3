package stream

import "github.com/hupe1980/agentgate/event"

// Frame is one SSE message: a classified event type, an optional event id and
// a JSON-serializable payload.
type Frame struct {
	Event event.Type
	ID    string
	Data  any
}

// QueryResult is the aggregated outcome of a non-streaming query.
type QueryResult struct {
	SessionID     string           `json:"session_id"`
	Response      string           `json:"response"`
	Events        []map[string]any `json:"events"`
	UsageMetadata map[string]any   `json:"usage_metadata,omitempty"`
}
