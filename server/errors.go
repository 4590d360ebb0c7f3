package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hupe1980/agentgate/core"
)

type errorDetail struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Details map[string]any `json:"details"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a classified error to its status and envelope; anything
// unclassified becomes a generic 500 with the detail kept in logs only.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ge *core.Error
	if errors.As(err, &ge) {
		if ge.HTTPStatus() >= 500 {
			s.logger.Error("request failed", "type", ge.TypeName(), "error", err)
		} else {
			s.logger.Warn("request rejected", "type", ge.TypeName(), "error", err)
		}
		details := ge.Details
		if details == nil {
			details = map[string]any{}
		}
		writeJSON(w, ge.HTTPStatus(), errorBody{Error: errorDetail{
			Message: ge.Message,
			Type:    ge.TypeName(),
			Details: details,
		}})
		return
	}

	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Message: "Internal server error",
		Type:    "InternalServerError",
		Details: map[string]any{},
	}})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Message: msg,
		Type:    "ValidationError",
		Details: map[string]any{},
	}})
}
