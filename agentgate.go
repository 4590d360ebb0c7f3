// Package agentgate is a gateway exposing HTTP/SSE endpoints for querying
// deployed conversational agents, managing their sessions and working with
// their append-only event logs, while delegating all execution and
// persistence to a remote managed agent-engine backend. Applications
// typically interact with this module through the agentgate binary
// (cmd/agentgate); the packages underneath compose as:
//
//  1. config loads the agent roster and backend location
//  2. registry resolves agent ids to cached backend client handles
//  3. stream / session / eventlog implement the query, state-update and
//     event-log protocols on top of those handles
//  4. server exposes everything over HTTP with SSE streaming
//
// The gateway holds no state of its own: session state is always the
// backend's fold of the event log, and every state change travels as an
// appended event.
package agentgate

// Version is the gateway release version reported by the health and root
// endpoints.
const Version = "1.0.0"
