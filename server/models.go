package server

// queryRequest is the body of query and stream_query calls.
type queryRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// sessionCreateRequest optionally seeds a new session with initial state.
type sessionCreateRequest struct {
	InitialState map[string]any `json:"initial_state,omitempty"`
}

// stateUpdateRequest carries a state delta. With replace set, keys absent
// from the delta are removed from the session state.
type stateUpdateRequest struct {
	StateDelta map[string]any `json:"state_delta"`
	Replace    bool           `json:"replace,omitempty"`
}

// eventAppendRequest describes one event to append to a session's log.
type eventAppendRequest struct {
	Author          string         `json:"author"`
	InvocationID    string         `json:"invocation_id"`
	Timestamp       float64        `json:"timestamp,omitempty"`
	ContentText     string         `json:"content_text,omitempty"`
	ContentRole     string         `json:"content_role,omitempty"`
	StateDelta      map[string]any `json:"state_delta,omitempty"`
	ArtifactDelta   map[string]int `json:"artifact_delta,omitempty"`
	TransferToAgent *string        `json:"transfer_to_agent,omitempty"`
	Escalate        *bool          `json:"escalate,omitempty"`
}
