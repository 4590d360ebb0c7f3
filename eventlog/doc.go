// Package eventlog implements the gateway's event-log operations: appending
// events (the sole state-mutation channel), offset/limit and page-style
// listing over backend iterators, conversation-turn formatting, and a
// poll-based tail for live event streaming.
package eventlog
