// Package engine defines the narrow collaborator contract for the remote
// managed agent-engine backend: session lifecycle, event append/list and the
// asynchronous per-request event stream. The backend is the single source of
// truth and ordering authority for sessions and events; the gateway holds no
// state of its own.
//
// Concrete transports live in sub-packages (see engine/vertex) so that
// services and tests depend only on the Client interface.
package engine
