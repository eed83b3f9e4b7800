// Package store persists podcasts, episodes and analyses in SQLite.
//
// Every mutation is an upsert keyed by a stable identifier: episodes are
// inserted once and never rewritten, analyses are replaced wholesale, and the
// per-episode analysis state records pending, skipped and failed outcomes
// beside the immutable episode row. The reporting queries are read-only and
// are what the CLI report commands and any dashboard consume.
//
// Timestamps are stored as fixed-width UTC strings so range filters compare
// lexically.
package store
