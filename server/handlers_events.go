package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hupe1980/agentgate/eventlog"
	"github.com/hupe1980/agentgate/stream"
)

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req eventAppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	result, err := s.events.Append(r.Context(), vars["agent_id"], vars["session_id"], eventlog.AppendRequest{
		UserID:          vars["user_id"],
		Author:          req.Author,
		InvocationID:    req.InvocationID,
		Timestamp:       req.Timestamp,
		ContentText:     req.ContentText,
		ContentRole:     req.ContentRole,
		StateDelta:      req.StateDelta,
		ArtifactDelta:   req.ArtifactDelta,
		TransferToAgent: req.TransferToAgent,
		Escalate:        req.Escalate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	events, err := s.events.List(r.Context(), vars["agent_id"], vars["session_id"],
		queryInt(r, "limit", 100),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":      events,
		"total_count": len(events),
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ev, err := s.events.Get(r.Context(), vars["agent_id"], vars["session_id"], vars["event_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.events.Delete(r.Context(), vars["agent_id"], vars["session_id"], vars["event_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	turns, err := s.events.Conversation(r.Context(), vars["agent_id"], vars["session_id"],
		queryInt(r, "max_turns", 0),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": vars["session_id"],
		"turns":      turns,
		"turn_count": len(turns),
	})
}

// handleStreamEvents tails the session's event log over SSE, emitting events
// appended after start_timestamp until the client disconnects.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	// Fail with a proper status before the stream opens when the session is
	// unknown or the agent is not in the roster.
	if _, err := s.sessions.Get(r.Context(), vars["agent_id"], vars["session_id"], vars["user_id"]); err != nil {
		s.writeError(w, err)
		return
	}

	frames := s.events.Tail(r.Context(), vars["agent_id"], vars["session_id"],
		queryFloat(r, "start_timestamp", 0),
	)
	s.streamFrames(w, stream.WithKeepalive(r.Context(), frames, s.cfg.Streaming.KeepaliveInterval))
}
