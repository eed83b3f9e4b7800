// Package notifications delivers run summaries and error alerts via ntfy.
//
// NewService returns an ntfy-backed implementation when a topic is
// configured and a no-op otherwise, so the orchestrator and CLI can call it
// unconditionally. The run_summary and errors toggles suppress their
// respective messages without disabling test notifications.
package notifications
