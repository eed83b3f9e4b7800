// Package logging assembles the structured slog loggers used across podwatch.
//
// It owns the console and JSON handlers, the level and output plumbing, and
// context helpers that tag log lines with run IDs, podcasts, episode IDs, and
// pipeline stages. NewNop gives tests and wiring code a logger that cannot fail.
package logging
