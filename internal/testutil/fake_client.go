package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
)

// FakeClient is a scripted engine.Client for tests. Populate the response
// fields before use; call counters record what the code under test touched.
// Safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	// Scripted responses.
	Session     *core.Session
	Sessions    []*core.Session
	PageToken   string
	Events      []any
	StreamItems []any

	// Scripted failures. A set error is returned by the matching method.
	CreateErr error
	GetErr    error
	ListErr   error
	DeleteErr error
	AppendErr error
	EventsErr error
	StreamErr error
	// StreamMidErr fails the stream after all items drained, instead of a
	// clean end.
	StreamMidErr error

	// Recorded calls.
	CreateCalls    int
	GetCalls       int
	ListCalls      int
	DeleteCalls    int
	AppendCalls    int
	ListEventCalls int
	StreamCalls    int
	Appended       []core.Event
	LastListOpts   engine.ListSessionsOptions
	NextCalls      int
	Closed         bool
}

var _ engine.Client = (*FakeClient)(nil)

// CreateSession returns the scripted session, defaulting to a minimal one.
func (f *FakeClient) CreateSession(ctx context.Context, agentID, userID string, initialState map[string]any) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if f.Session != nil {
		return f.Session, nil
	}
	return &core.Session{ID: "sess-1", UserID: userID, AppName: agentID, State: map[string]any{}}, nil
}

// GetSession returns the scripted session.
func (f *FakeClient) GetSession(ctx context.Context, agentID, sessionID string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	if f.Session == nil {
		return nil, errors.New("testutil: no session scripted")
	}
	return f.Session, nil
}

// ListSessions returns the scripted session page and records the options.
func (f *FakeClient) ListSessions(ctx context.Context, agentID string, opts engine.ListSessionsOptions) (*engine.SessionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	f.LastListOpts = opts
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return &engine.SessionPage{Sessions: f.Sessions, NextPageToken: f.PageToken}, nil
}

// DeleteSession records the call.
func (f *FakeClient) DeleteSession(ctx context.Context, agentID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	return f.DeleteErr
}

// AppendEvent records the appended event.
func (f *FakeClient) AppendEvent(ctx context.Context, agentID, sessionID string, ev core.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AppendCalls++
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.Appended = append(f.Appended, ev)
	return nil
}

// ListEvents returns an iterator over the scripted events that counts Next
// calls on the parent fake.
func (f *FakeClient) ListEvents(ctx context.Context, agentID, sessionID string) (engine.EventIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListEventCalls++
	if f.EventsErr != nil {
		return nil, f.EventsErr
	}
	return &fakeIterator{parent: f, items: f.Events}, nil
}

// StreamQuery returns a stream over the scripted stream items.
func (f *FakeClient) StreamQuery(ctx context.Context, agentID, userID, sessionID string, message core.Content) (engine.EventStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StreamCalls++
	if f.StreamErr != nil {
		return nil, f.StreamErr
	}
	return &fakeStream{parent: f, items: f.StreamItems}, nil
}

type fakeIterator struct {
	parent *FakeClient
	items  []any
	pos    int
}

func (it *fakeIterator) Next(ctx context.Context) (any, error) {
	it.parent.mu.Lock()
	it.parent.NextCalls++
	it.parent.mu.Unlock()
	if it.pos >= len(it.items) {
		return nil, engine.Done
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

type fakeStream struct {
	parent *FakeClient
	items  []any
	pos    int
}

func (s *fakeStream) Recv(ctx context.Context) (any, error) {
	if s.pos >= len(s.items) {
		if s.parent.StreamMidErr != nil {
			return nil, s.parent.StreamMidErr
		}
		return nil, engine.Done
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

func (s *fakeStream) Close() error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.Closed = true
	return nil
}
