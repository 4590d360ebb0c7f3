// Package event implements the gateway's wire pipeline for backend events:
// normalization of heterogeneous backend shapes into one canonical mapping,
// and classification of each normalized event into exactly one stream frame
// type. Everything downstream of this package (the orchestrator, the SSE
// writer, the event log endpoints) operates on the canonical mapping only.
package event
