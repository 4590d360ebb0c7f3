package vertex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/hupe1980/agentgate/engine"
)

// eventStream decodes a streaming query response body. The backend emits one
// JSON object per line; some deployments frame lines as SSE ("data: {...}"),
// which is tolerated by stripping the prefix.
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newEventStream(body io.ReadCloser) *eventStream {
	scanner := bufio.NewScanner(body)
	// Events can carry inline blobs; allow lines well beyond the default.
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	return &eventStream{body: body, scanner: scanner}
}

// Recv returns the next raw event mapping, or engine.Done once the body is
// exhausted. Cancellation of the request context aborts the underlying read.
func (s *eventStream) Recv(ctx context.Context) (any, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, err
			}
			return nil, engine.Done
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if text := string(line); strings.HasPrefix(text, "data:") {
			line = bytes.TrimSpace([]byte(strings.TrimPrefix(text, "data:")))
			if len(line) == 0 {
				continue
			}
		}
		var ev map[string]any
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	}
}

// Close releases the backend-side stream.
func (s *eventStream) Close() error { return s.body.Close() }
