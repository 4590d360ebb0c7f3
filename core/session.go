package core

import "time"

// Session is the gateway's view of a backend-owned session. It is a snapshot:
// State reflects the left-fold of all state deltas appended up to the moment
// the backend served it, never a locally maintained copy. Mutating it has no
// effect on the backend; state changes always travel as appended events.
type Session struct {
	ID         string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	AppName    string         `json:"app_name"`
	State      map[string]any `json:"state"`
	EventCount int            `json:"event_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
