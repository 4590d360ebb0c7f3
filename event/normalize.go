package event

import (
	"encoding/json"

	"github.com/hupe1980/agentgate/core"
)

// Normalize converts a backend event of unknown concrete shape into the
// canonical mapping with keys id, author, invocation_id, timestamp and, only
// when present and non-empty, content and actions. Backend streams yield
// plain mappings for some call paths and typed events for others; callers
// never see that difference.
//
// Normalization is idempotent: a mapping passes through unchanged. Missing
// optional fields are simply omitted, never an error.
func Normalize(v any) map[string]any {
	switch ev := v.(type) {
	case map[string]any:
		return ev
	case core.Event:
		return fromEvent(ev)
	case *core.Event:
		if ev == nil {
			return map[string]any{}
		}
		return fromEvent(*ev)
	default:
		// Unknown typed shape: round-trip through JSON, which yields the
		// same mapping the backend would have sent for it.
		raw, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}
		}
		m := map[string]any{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return map[string]any{}
		}
		return m
	}
}

func fromEvent(ev core.Event) map[string]any {
	m := map[string]any{
		"id":            ev.ID,
		"author":        ev.Author,
		"invocation_id": ev.InvocationID,
		"timestamp":     ev.UnixSeconds(),
	}
	if c := contentToMap(ev.Content); c != nil {
		m["content"] = c
	}
	if a := actionsToMap(ev.Actions); a != nil {
		m["actions"] = a
	}
	if ev.Partial != nil {
		m["partial"] = *ev.Partial
	}
	if ev.TurnComplete != nil {
		m["turn_complete"] = *ev.TurnComplete
	}
	if ev.FinishReason != nil {
		m["finish_reason"] = *ev.FinishReason
	}
	return m
}

func contentToMap(c *core.Content) map[string]any {
	if c == nil || len(c.Parts) == 0 {
		return nil
	}
	parts := make([]any, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, partToMap(p))
	}
	return map[string]any{"role": c.Role, "parts": parts}
}

// partToMap emits at most one payload key per part.
func partToMap(p core.Part) map[string]any {
	switch part := p.(type) {
	case core.TextPart:
		return map[string]any{"text": part.Text}
	case core.FunctionCallPart:
		args := part.Args
		if args == nil {
			args = map[string]any{}
		}
		return map[string]any{"function_call": map[string]any{"name": part.Name, "args": args}}
	case core.FunctionResponsePart:
		resp := part.Response
		if resp == nil {
			resp = map[string]any{}
		}
		return map[string]any{"function_response": map[string]any{"name": part.Name, "response": resp}}
	case core.FileDataPart:
		return map[string]any{"file_data": map[string]any{"file_uri": part.FileURI, "mime_type": part.MimeType}}
	case core.InlineDataPart:
		return map[string]any{"inline_data": map[string]any{"mime_type": part.MimeType, "data": part.Data}}
	default:
		return map[string]any{}
	}
}

func actionsToMap(a core.EventActions) map[string]any {
	if a.IsZero() {
		return nil
	}
	m := map[string]any{}
	if len(a.StateDelta) > 0 {
		m["state_delta"] = a.StateDelta
	}
	if len(a.ArtifactDelta) > 0 {
		m["artifact_delta"] = a.ArtifactDelta
	}
	if a.TransferToAgent != nil {
		m["transfer_to_agent"] = *a.TransferToAgent
	}
	if a.Escalate != nil {
		m["escalate"] = *a.Escalate
	}
	return m
}

// Text concatenates every text part of a normalized event's content, in part
// order. Events without content yield the empty string.
func Text(ev map[string]any) string {
	content, ok := ev["content"].(map[string]any)
	if !ok {
		return ""
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}
	var out string
	for _, p := range parts {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := pm["text"].(string); ok {
			out += text
		}
	}
	return out
}

// Timestamp extracts the numeric timestamp of a normalized event, 0 when
// absent.
func Timestamp(ev map[string]any) float64 {
	switch ts := ev["timestamp"].(type) {
	case float64:
		return ts
	case int64:
		return float64(ts)
	case int:
		return float64(ts)
	default:
		return 0
	}
}

// ID extracts the event id of a normalized event, "" when absent.
func ID(ev map[string]any) string {
	id, _ := ev["id"].(string)
	return id
}

// Author extracts the author of a normalized event, "" when absent.
func Author(ev map[string]any) string {
	author, _ := ev["author"].(string)
	return author
}
