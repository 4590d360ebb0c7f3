// Package server exposes the gateway's HTTP/SSE surface: the agent roster,
// query and streaming-query endpoints, session and event-log CRUD, and
// health. All routes live under /api/v1. Errors carry a structured
// {"error":{"message","type","details"}} body; failures after an SSE stream
// has started are delivered as a terminal error frame, never as a status
// change.
package server
