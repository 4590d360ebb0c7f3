package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hupe1980/agentgate/core"
)

// Done is returned by EventIterator.Next and EventStream.Recv when the
// underlying sequence is exhausted.
var Done = errors.New("engine: no more items")

// ListSessionsOptions carries pagination and filtering for session listing.
// PageToken and Filter are backend-opaque and forwarded unmodified.
type ListSessionsOptions struct {
	PageSize  int
	PageToken string
	Filter    string
	OrderBy   string
}

// SessionPage is one page of a session listing.
type SessionPage struct {
	Sessions      []*core.Session
	NextPageToken string
}

// EventIterator walks a session's event log in backend append order. Items
// are raw backend shapes (typed events or plain mappings); callers normalize
// only the items they keep.
type EventIterator interface {
	// Next returns the next raw event, or Done after the last one.
	Next(ctx context.Context) (any, error)
}

// EventStream is the asynchronous per-request event stream produced by a
// streaming query. Recv suspends until the next backend event arrives; Close
// releases backend-side stream resources and must be called when the
// consumer stops early.
type EventStream interface {
	Recv(ctx context.Context) (any, error)
	Close() error
}

// Client is the backend collaborator consumed by the gateway services. All
// calls are context-aware and safe for concurrent use.
type Client interface {
	CreateSession(ctx context.Context, agentID, userID string, initialState map[string]any) (*core.Session, error)
	GetSession(ctx context.Context, agentID, sessionID string) (*core.Session, error)
	ListSessions(ctx context.Context, agentID string, opts ListSessionsOptions) (*SessionPage, error)
	DeleteSession(ctx context.Context, agentID, sessionID string) error
	AppendEvent(ctx context.Context, agentID, sessionID string, ev core.Event) error
	ListEvents(ctx context.Context, agentID, sessionID string) (EventIterator, error)
	StreamQuery(ctx context.Context, agentID, userID, sessionID string, message core.Content) (EventStream, error)
}

// APIError carries the HTTP-level outcome of a failed backend call.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("agent engine: %s (status %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err represents a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsInvalidArgument reports whether err represents a backend 400.
func IsInvalidArgument(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}
