// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, podcast names, episode IDs, and
//     stage names for logging.
//   - The failure taxonomy as sentinel markers, the Wrap helper that tags
//     errors with stage context, and Classify, which turns any error chain
//     into a stable category for run summaries, metrics, and stored reasons.
//
// External clients live in subpackages (llm, youtube) and tag their errors
// with these markers so callers can branch with errors.Is.
package services
