// Package vertex implements the engine.Client contract against the Vertex AI
// Agent Engine REST surface. Credentials come from a refreshable oauth2 token
// source (Application Default Credentials unless overridden); unary calls run
// behind a circuit breaker so a misbehaving backend fails fast instead of
// piling up retries.
package vertex
