// Package transcript resolves the richest available body text for an episode.
//
// When the podcast has a video channel, the resolver matches the episode to an
// upload by title similarity and publish-time proximity and fetches its
// caption track. Otherwise, or when no video matches or captions are missing,
// it falls back to the feed description, and finally to an empty "none"
// result. Source failures never propagate; the chosen SourceKind is recorded
// with the analysis.
package transcript
