package event

// Type tags one stream frame. Synthetic framing types (message_start,
// message_complete, error, ping) are emitted by the orchestrator directly;
// Classify only ever produces one of the four event-derived types.
type Type string

const (
	TypeMessageStart     Type = "message_start"
	TypeContentDelta     Type = "content_delta"
	TypeFunctionCall     Type = "function_call"
	TypeFunctionResponse Type = "function_response"
	TypeStateUpdate      Type = "state_update"
	TypeMessageComplete  Type = "message_complete"
	TypeError            Type = "error"
	TypePing             Type = "ping"
)

// Classify derives exactly one frame type from a normalized event mapping.
// A single backend event may carry both content and a state delta, and
// consumers render exactly one frame per event, so the priority order is
// fixed and first-match-wins:
//
//  1. a non-empty actions.state_delta makes it a state_update
//  2. else any function_call part makes it a function_call
//  3. else any function_response part makes it a function_response
//  4. else it is a content_delta
//
// An event carrying both a state delta and a function call therefore always
// classifies as state_update. Empty or missing content does not influence
// the state_update rule.
func Classify(ev map[string]any) Type {
	if actions, ok := ev["actions"].(map[string]any); ok {
		if delta, ok := actions["state_delta"].(map[string]any); ok && len(delta) > 0 {
			return TypeStateUpdate
		}
	}

	sawResponse := false
	if content, ok := ev["content"].(map[string]any); ok {
		if parts, ok := content["parts"].([]any); ok {
			for _, p := range parts {
				pm, ok := p.(map[string]any)
				if !ok {
					continue
				}
				if _, ok := pm["function_call"]; ok {
					return TypeFunctionCall
				}
				if _, ok := pm["function_response"]; ok {
					sawResponse = true
				}
			}
		}
	}
	if sawResponse {
		return TypeFunctionResponse
	}
	return TypeContentDelta
}
