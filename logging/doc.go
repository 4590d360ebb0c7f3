// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. The gateway logs JSON by default; tests use NoOpLogger.
package logging
