package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hupe1980/agentgate/stream"
)

// streamFrames writes a frame sequence as Server-Sent Events until the
// channel closes. Each frame becomes an event/id/data block; the writer
// flushes after every frame so deltas reach the client immediately. The
// request context cancels upstream producers when the client disconnects.
func (s *Server) streamFrames(w http.ResponseWriter, frames <-chan stream.Frame) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for frame := range frames {
		data, err := json.Marshal(frame.Data)
		if err != nil {
			s.logger.Error("failed to encode frame", "event", frame.Event, "error", err)
			continue
		}
		fmt.Fprintf(w, "event: %s\n", frame.Event)
		if frame.ID != "" {
			fmt.Fprintf(w, "id: %s\n", frame.ID)
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
}
