package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hupe1980/agentgate"
	"github.com/hupe1980/agentgate/stream"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "Agent Engine Gateway",
		"version": agentgate.Version,
		"status":  "online",
	})
}

// handleHealth reports backend reachability and the static roster. It never
// fails: an unreachable backend only flips the status to disconnected.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	engineStatus := "disconnected"
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			s.logger.Warn("agent engine health check failed", "error", err)
		} else {
			engineStatus = "connected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"version":             agentgate.Version,
		"agent_engine_status": engineStatus,
		"timestamp":           time.Now().UTC(),
		"agents":              s.registry.List(),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agent_id"]

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		s.badRequest(w, "user_id and message are required")
		return
	}

	h, err := s.registry.Get(r.Context(), agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.orchestrator.Query(r.Context(), h.Client, agentID, req.UserID, req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStreamQuery resolves the agent before the stream starts, so unknown
// agents still get a proper HTTP status. Once streaming begins, failures
// arrive as error frames only.
func (s *Server) handleStreamQuery(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["agent_id"]

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		s.badRequest(w, "user_id and message are required")
		return
	}

	h, err := s.registry.Get(r.Context(), agentID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	frames := s.orchestrator.StreamQuery(r.Context(), h.Client, agentID, req.UserID, req.SessionID, req.Message)
	s.streamFrames(w, stream.WithKeepalive(r.Context(), frames, s.cfg.Streaming.KeepaliveInterval))
}
