package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/internal/testutil"
	"github.com/hupe1980/agentgate/registry"
)

func newTestServer(fake *testutil.FakeClient) *Server {
	cfg := config.Default()
	cfg.GoogleCloud.Project = "proj"
	cfg.Agents = []config.Agent{
		{AgentID: "agent-1", Name: "engine-1", DisplayName: "One", Enabled: true},
	}
	reg := registry.New(cfg, func(ctx context.Context, a config.Agent) (engine.Client, error) {
		return fake, nil
	})
	return New(cfg, reg)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestServer_Root(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})
	rec := doRequest(t, srv, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "online", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disconnected", body["agent_engine_status"], "no health check configured")
	assert.Len(t, body["agents"], 1)
}

func TestServer_HealthConnected(t *testing.T) {
	cfg := config.Default()
	cfg.GoogleCloud.Project = "proj"
	reg := registry.New(cfg, func(ctx context.Context, a config.Agent) (engine.Client, error) {
		return &testutil.FakeClient{}, nil
	})
	srv := New(cfg, reg, func(o *Options) {
		o.HealthCheck = func(ctx context.Context) error { return nil }
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	body := decodeBody(t, rec)
	assert.Equal(t, "connected", body["agent_engine_status"])
}

func TestServer_ListAgents(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/agents", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var agents []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "agent-1", agents[0]["agent_id"])
}

func TestServer_QueryValidation(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/query", `{"user_id":"alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ValidationError", body["error"].(map[string]any)["type"])

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/query", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_QueryUnknownAgent(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/nope/query", `{"user_id":"alice","message":"hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "AgentNotFoundError", errBody["type"])
	assert.Equal(t, "nope", errBody["details"].(map[string]any)["agent_id"])
}

func TestServer_Query(t *testing.T) {
	fake := &testutil.FakeClient{StreamItems: []any{
		map[string]any{"id": "e1", "author": "agent", "session_id": "sess-9", "content": map[string]any{
			"parts": []any{map[string]any{"text": "hello there"}},
		}},
	}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/query", `{"user_id":"alice","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "hello there", body["response"])
	assert.Equal(t, "sess-9", body["session_id"])
	assert.Len(t, body["events"], 1)
}

func TestServer_StreamQuery(t *testing.T) {
	fake := &testutil.FakeClient{StreamItems: []any{
		map[string]any{"id": "e1", "author": "agent", "content": map[string]any{
			"parts": []any{map[string]any{"text": "hi"}},
		}},
	}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/stream_query", `{"user_id":"alice","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: message_start\n")
	assert.Contains(t, out, "event: content_delta\nid: e1\n")
	assert.Contains(t, out, "event: message_complete\n")
	assert.Contains(t, out, `data: {"status":"completed"}`)
}

func TestServer_GetSessionNotFound(t *testing.T) {
	fake := &testutil.FakeClient{GetErr: &engine.APIError{StatusCode: 404, Message: "gone"}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/agents/agent-1/users/alice/sessions/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "SessionNotFoundError", errBody["type"])
}

func TestServer_CreateSession(t *testing.T) {
	fake := &testutil.FakeClient{}
	srv := newTestServer(fake)

	// An empty body is fine: initial state is optional.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/users/alice/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alice", body["user_id"])
	assert.NotEmpty(t, body["session_id"])
}

func TestServer_UpdateStateValidation(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/agents/agent-1/users/alice/sessions/s1/state", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "ValidationError", errBody["type"])
}

func TestServer_UpdateState(t *testing.T) {
	fake := &testutil.FakeClient{
		Session: &core.Session{ID: "s1", UserID: "alice", State: map[string]any{"theme": "dark"}},
	}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/agents/agent-1/users/alice/sessions/s1/state",
		`{"state_delta":{"theme":"dark"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"theme": "dark"}, body["state"])
	assert.Equal(t, 1, fake.AppendCalls)
}

func TestServer_AppendEvent(t *testing.T) {
	fake := &testutil.FakeClient{Session: &core.Session{ID: "s1", State: map[string]any{}}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/agents/agent-1/users/alice/sessions/s1/events",
		`{"author":"user","invocation_id":"inv-1","content_text":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["event_id"], "inv-1-")
}

func TestServer_ListEvents(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		map[string]any{"id": "e0", "author": "agent"},
		map[string]any{"id": "e1", "author": "agent"},
		map[string]any{"id": "e2", "author": "agent"},
	}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/agents/agent-1/users/alice/sessions/s1/events?limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	events := body["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].(map[string]any)["id"])
	assert.Equal(t, float64(1), body["total_count"])
}

func TestServer_DeleteEventUnsupported(t *testing.T) {
	srv := newTestServer(&testutil.FakeClient{})

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/agents/agent-1/users/alice/sessions/s1/events/e1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "EventAppendError", errBody["type"])
}

func TestServer_Conversation(t *testing.T) {
	fake := &testutil.FakeClient{Events: []any{
		map[string]any{"id": "e1", "author": "user", "content": map[string]any{
			"parts": []any{map[string]any{"text": "q"}},
		}},
		map[string]any{"id": "e2", "author": "agent", "content": map[string]any{
			"parts": []any{map[string]any{"text": "a"}},
		}},
	}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/agents/agent-1/users/alice/sessions/s1/conversation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["turn_count"])
}

func TestServer_UnclassifiedErrorIsOpaque(t *testing.T) {
	// Ownership mismatch surfaces as a plain error; the envelope must not leak
	// its message.
	fake := &testutil.FakeClient{Session: &core.Session{ID: "s1", UserID: "alice"}}
	srv := newTestServer(fake)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/agents/agent-1/users/bob/sessions/s1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "InternalServerError", errBody["type"])
	assert.Equal(t, "Internal server error", errBody["message"])
}
