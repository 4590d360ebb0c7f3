// Package session implements the gateway's session operations against the
// backend: create/get/list/delete, the state-update protocol (state changes
// travel as appended system events, never as direct mutation), user listing
// and per-session statistics.
package session
