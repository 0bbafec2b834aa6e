// Package logging assembles the structured slog loggers used across deckhand.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so session code can
// automatically tag log lines with track numbers, stages, and correlation
// IDs. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
