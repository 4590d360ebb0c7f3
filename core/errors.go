package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies gateway failures. Every kind has a fixed HTTP status;
// anything that is not an *Error surfaces as a generic 500 with the detail
// kept in logs only.
type ErrorKind int

const (
	// KindInternal is the catch-all for unclassified failures.
	KindInternal ErrorKind = iota
	// KindAgentNotFound signals an unknown agent id.
	KindAgentNotFound
	// KindSessionNotFound signals an unknown or deleted session.
	KindSessionNotFound
	// KindInvalidStateUpdate signals a malformed state delta or a backend
	// rejection of the synthesized state-update event.
	KindInvalidStateUpdate
	// KindEventAppend signals an append failure for reasons other than
	// invalid input.
	KindEventAppend
	// KindEventNotFound signals an unknown event id within a session.
	KindEventNotFound
	// KindEngine signals any backend-call failure not otherwise classified.
	KindEngine
	// KindAuthentication signals a credential acquisition failure.
	KindAuthentication
)

// Error is the gateway's classified error. Message and Details are safe to
// echo to callers; the wrapped cause is for logging only.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the kind to its HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAgentNotFound, KindSessionNotFound, KindEventNotFound:
		return http.StatusNotFound
	case KindInvalidStateUpdate:
		return http.StatusBadRequest
	case KindEngine:
		return http.StatusBadGateway
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// TypeName returns the stable type string carried in error response bodies.
func (e *Error) TypeName() string {
	switch e.Kind {
	case KindAgentNotFound:
		return "AgentNotFoundError"
	case KindSessionNotFound:
		return "SessionNotFoundError"
	case KindInvalidStateUpdate:
		return "InvalidStateUpdateError"
	case KindEventAppend:
		return "EventAppendError"
	case KindEventNotFound:
		return "EventNotFoundError"
	case KindEngine:
		return "AgentEngineError"
	case KindAuthentication:
		return "AuthenticationError"
	default:
		return "InternalServerError"
	}
}

// AgentNotFoundError reports an unknown agent id.
func AgentNotFoundError(agentID string) *Error {
	return &Error{
		Kind:    KindAgentNotFound,
		Message: fmt.Sprintf("Agent with ID %q not found", agentID),
		Details: map[string]any{"agent_id": agentID},
	}
}

// SessionNotFoundError reports an unknown or deleted session.
func SessionNotFoundError(sessionID string) *Error {
	return &Error{
		Kind:    KindSessionNotFound,
		Message: fmt.Sprintf("Session %q not found", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// InvalidStateUpdateError reports a rejected or malformed state update.
func InvalidStateUpdateError(cause error) *Error {
	return &Error{
		Kind:    KindInvalidStateUpdate,
		Message: fmt.Sprintf("Invalid state update: %s", cause),
		cause:   cause,
	}
}

// EventAppendError reports an append failure.
func EventAppendError(cause error) *Error {
	return &Error{
		Kind:    KindEventAppend,
		Message: fmt.Sprintf("Failed to append event: %s", cause),
		cause:   cause,
	}
}

// EventNotFoundError reports an unknown event id.
func EventNotFoundError(eventID string) *Error {
	return &Error{
		Kind:    KindEventNotFound,
		Message: fmt.Sprintf("Event %q not found", eventID),
		Details: map[string]any{"event_id": eventID},
	}
}

// EngineError reports a backend-call failure, keeping the original error as
// context for logging.
func EngineError(msg string, cause error) *Error {
	details := map[string]any{}
	if cause != nil {
		details["original_error"] = cause.Error()
	}
	return &Error{
		Kind:    KindEngine,
		Message: fmt.Sprintf("Agent Engine error: %s", msg),
		Details: details,
		cause:   cause,
	}
}

// AuthenticationError reports a credential acquisition failure.
func AuthenticationError(cause error) *Error {
	return &Error{
		Kind:    KindAuthentication,
		Message: fmt.Sprintf("Failed to authenticate: %s", cause),
		cause:   cause,
	}
}

// KindOf extracts the kind from an error chain; unclassified errors report
// KindInternal.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}
