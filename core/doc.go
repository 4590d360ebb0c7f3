// Package core provides the foundational domain types used by the gateway. It
// defines the core abstractions for:
//
//   - Events (immutable append-only conversation + state-change records)
//   - Sessions (remote-owned conversational containers with key/value state)
//   - Agents (static roster entries describing deployed agents)
//   - The gateway error taxonomy with its HTTP status mapping
//
// The package intentionally keeps implementation concerns (backend transport,
// HTTP serving, streaming orchestration) out of scope. All state authority
// lives in the remote agent engine; the types here describe the wire-level
// view of that state, never a locally persisted copy.
package core
