// Package stream drives a backend's asynchronous event stream into a
// well-formed frame sequence: a synthetic message_start, one classified frame
// per backend event in arrival order, and a terminal message_complete or
// error frame. The same stream backs the non-streaming query path via text
// aggregation. A keepalive interleaver fills idle gaps with ping frames for
// long-lived SSE delivery.
package stream
