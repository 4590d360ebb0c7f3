package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/event"
	"github.com/hupe1980/agentgate/logging"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

const listEventsPageSize = 100

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// TokenSource supplies refreshable credentials. Defaults to Application
	// Default Credentials with the cloud-platform scope.
	TokenSource oauth2.TokenSource
	// HTTPClient overrides the oauth2-wrapped default client.
	HTTPClient *http.Client
	// BaseURL overrides the regional endpoint, mainly for tests.
	BaseURL string
	// BreakerMaxFailures is the consecutive-failure count that opens the
	// circuit for unary calls.
	BreakerMaxFailures uint32
	// BreakerTimeout is how long the circuit stays open before a probe.
	BreakerTimeout time.Duration
	// Logger receives breaker state changes and request diagnostics.
	Logger logging.Logger
}

// Client talks to one project/location of the agent-engine backend. Safe for
// concurrent use.
type Client struct {
	project    string
	location   string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     logging.Logger
	ts         oauth2.TokenSource
}

var _ engine.Client = (*Client)(nil)

// New constructs a Client with optional overrides. Credential acquisition
// happens here; a failure surfaces as an AuthenticationError so the registry
// can report construction failures distinctly from backend call failures.
func New(ctx context.Context, project, location string, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		BreakerMaxFailures: 5,
		BreakerTimeout:     30 * time.Second,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ts := opts.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, core.AuthenticationError(err)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = oauth2.NewClient(ctx, ts)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1beta1", location)
	}

	logger := opts.Logger
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "agent-engine:" + project,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Client-side rejections (4xx) must not open the circuit.
			var apiErr *engine.APIError
			return err == nil || (asAPIError(err, &apiErr) && apiErr.StatusCode < 500)
		},
	})

	return &Client{
		project:    project,
		location:   location,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
		ts:         ts,
	}, nil
}

// Verify reports whether a credential can currently be minted. Used by the
// health endpoint; never touches agent resources.
func (c *Client) Verify(ctx context.Context) error {
	if _, err := c.ts.Token(); err != nil {
		return core.AuthenticationError(err)
	}
	return nil
}

// Close releases idle transport connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) engineName(agentID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/reasoningEngines/%s", c.project, c.location, agentID)
}

func (c *Client) sessionName(agentID, sessionID string) string {
	return c.engineName(agentID) + "/sessions/" + sessionID
}

// CreateSession creates a backend session for userID, optionally seeding
// state. The backend assigns the session id.
func (c *Client) CreateSession(ctx context.Context, agentID, userID string, initialState map[string]any) (*core.Session, error) {
	body := map[string]any{"userId": userID}
	if len(initialState) > 0 {
		body["sessionState"] = initialState
	}
	data, err := c.do(ctx, http.MethodPost, c.baseURL+"/"+c.engineName(agentID)+"/sessions", body)
	if err != nil {
		return nil, err
	}
	return decodeSessionPayload(data, agentID)
}

// GetSession fetches one session snapshot.
func (c *Client) GetSession(ctx context.Context, agentID, sessionID string) (*core.Session, error) {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+c.sessionName(agentID, sessionID), nil)
	if err != nil {
		return nil, err
	}
	return decodeSessionPayload(data, agentID)
}

// ListSessions returns one page of sessions. Filter and page token are passed
// through unmodified.
func (c *Client) ListSessions(ctx context.Context, agentID string, opts engine.ListSessionsOptions) (*engine.SessionPage, error) {
	q := url.Values{}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.PageToken != "" {
		q.Set("pageToken", opts.PageToken)
	}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.OrderBy != "" {
		q.Set("orderBy", opts.OrderBy)
	}
	u := c.baseURL + "/" + c.engineName(agentID) + "/sessions"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Sessions      []sessionResource `json:"sessions"`
		NextPageToken string            `json:"nextPageToken"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode session list: %w", err)
	}
	page := &engine.SessionPage{NextPageToken: payload.NextPageToken}
	for i := range payload.Sessions {
		page.Sessions = append(page.Sessions, payload.Sessions[i].toSession(agentID))
	}
	return page, nil
}

// DeleteSession deletes one session.
func (c *Client) DeleteSession(ctx context.Context, agentID, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+"/"+c.sessionName(agentID, sessionID), nil)
	return err
}

// AppendEvent appends one event to a session's log. This is the sole atomic
// boundary for state mutation: either the whole event (and its state delta)
// lands or none of it does.
func (c *Client) AppendEvent(ctx context.Context, agentID, sessionID string, ev core.Event) error {
	body := map[string]any{
		"author":       ev.Author,
		"invocationId": ev.InvocationID,
		"timestamp":    ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	n := event.Normalize(ev)
	if content, ok := n["content"]; ok {
		body["content"] = content
	}
	if actions, ok := n["actions"]; ok {
		body["actions"] = actions
	}
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/"+c.sessionName(agentID, sessionID)+":appendEvent", body)
	return err
}

// ListEvents returns a lazy iterator over the session's event log in append
// order, fetching pages on demand.
func (c *Client) ListEvents(ctx context.Context, agentID, sessionID string) (engine.EventIterator, error) {
	return &eventIterator{
		c:       c,
		listURL: c.baseURL + "/" + c.sessionName(agentID, sessionID) + "/events",
	}, nil
}

// StreamQuery starts a streaming query and returns the backend event stream.
// The response body is line-delimited JSON (optionally SSE-framed); each line
// becomes one raw event mapping.
func (c *Client) StreamQuery(ctx context.Context, agentID, userID, sessionID string, message core.Content) (engine.EventStream, error) {
	input := map[string]any{
		"user_id": userID,
		"message": event.Normalize(core.Event{Content: &message})["content"],
	}
	if sessionID != "" {
		input["session_id"] = sessionID
	}
	body := map[string]any{
		"classMethod": "async_stream_query",
		"input":       input,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode stream query: %w", err)
	}
	u := c.baseURL + "/" + c.engineName(agentID) + ":streamQuery"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, &engine.APIError{StatusCode: resp.StatusCode, Message: apiMessage(data)}
	}
	return newEventStream(resp.Body), nil
}

// do executes one unary REST call through the circuit breaker and returns the
// response body.
func (c *Client) do(ctx context.Context, method, u string, body any) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, &engine.APIError{StatusCode: resp.StatusCode, Message: apiMessage(data)}
		}
		return data, nil
	})
}

func asAPIError(err error, target **engine.APIError) bool {
	apiErr, ok := err.(*engine.APIError)
	if ok {
		*target = apiErr
	}
	return ok
}

// apiMessage extracts the backend error message from a standard Google API
// error body, falling back to the raw body text.
func apiMessage(data []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = "request failed"
	}
	return msg
}

// sessionResource mirrors the backend session representation.
type sessionResource struct {
	Name          string            `json:"name"`
	UserID        string            `json:"userId"`
	SessionState  map[string]any    `json:"sessionState"`
	SessionEvents []json.RawMessage `json:"sessionEvents"`
	CreateTime    time.Time         `json:"createTime"`
	UpdateTime    time.Time         `json:"updateTime"`
}

func (r *sessionResource) toSession(agentID string) *core.Session {
	id := r.Name
	if idx := strings.LastIndex(r.Name, "/"); idx >= 0 {
		id = r.Name[idx+1:]
	}
	state := r.SessionState
	if state == nil {
		state = map[string]any{}
	}
	created := r.CreateTime
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := r.UpdateTime
	if updated.IsZero() {
		updated = created
	}
	return &core.Session{
		ID:         id,
		UserID:     r.UserID,
		AppName:    agentID,
		State:      state,
		EventCount: len(r.SessionEvents),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
}

// decodeSessionPayload handles both a bare session resource and a completed
// long-running operation wrapping one.
func decodeSessionPayload(data []byte, agentID string) (*core.Session, error) {
	var op struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &op); err == nil && len(op.Response) > 0 {
		data = op.Response
	}
	var res sessionResource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return res.toSession(agentID), nil
}
