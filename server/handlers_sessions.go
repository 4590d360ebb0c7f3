package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agent_id"]

	list, err := s.sessions.ListUsers(r.Context(), agentID,
		queryInt(r, "page_size", 100),
		r.URL.Query().Get("page_token"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleListAllSessions lists sessions across users; an optional user_id query
// parameter narrows the listing like the per-user route does.
func (s *Server) handleListAllSessions(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agent_id"]
	q := r.URL.Query()

	list, err := s.sessions.ListSessions(r.Context(), agentID, q.Get("user_id"),
		queryInt(r, "page_size", 100),
		q.Get("page_token"),
		q.Get("filter"),
		q.Get("order_by"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid request body")
		return
	}

	sess, err := s.sessions.Create(r.Context(), vars["agent_id"], vars["user_id"], req.InitialState)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleCreateSessionWithID accepts a caller-suggested session id. The backend
// assigns ids itself, so the suggestion is advisory; the response carries the
// authoritative id.
func (s *Server) handleCreateSessionWithID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid request body")
		return
	}

	sess, err := s.sessions.Create(r.Context(), vars["agent_id"], vars["user_id"], req.InitialState)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sess.ID != vars["session_id"] {
		s.logger.Warn("backend assigned a different session id",
			"requested", vars["session_id"], "assigned", sess.ID)
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := r.URL.Query()

	list, err := s.sessions.ListSessions(r.Context(), vars["agent_id"], vars["user_id"],
		queryInt(r, "page_size", 100),
		q.Get("page_token"),
		q.Get("filter"),
		q.Get("order_by"),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	sess, err := s.sessions.Get(r.Context(), vars["agent_id"], vars["session_id"], vars["user_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.sessions.Delete(r.Context(), vars["agent_id"], vars["session_id"], vars["user_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": vars["session_id"],
	})
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req stateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.StateDelta == nil {
		s.badRequest(w, "state_delta is required")
		return
	}

	sess, err := s.sessions.UpdateState(r.Context(), vars["agent_id"], vars["session_id"], vars["user_id"], req.StateDelta, req.Replace)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	stats, err := s.sessions.Stats(r.Context(), vars["agent_id"], vars["session_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
