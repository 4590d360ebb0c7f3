package core

// AgentInfo is the static roster entry describing one deployed agent. Entries
// are immutable after configuration load; the registry maps each one to a
// lazily-created backend client handle.
type AgentInfo struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}
