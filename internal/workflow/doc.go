// Package workflow runs the podcast pipeline across the roster.
//
// A run moves through fetching, resolving, and analyzing before it reaches
// complete. Fetching pulls every roster feed through a bounded errgroup pool
// and inserts new episodes. Resolving and analyzing walk pending episodes in
// per-podcast lanes so one podcast's episodes are handled in order while
// different podcasts proceed in parallel.
//
// Each episode is claimed through the episodelock guard and re-checked against
// the store before any paid work, so overlapping runs never analyze the same
// episode twice. Failures are recorded in the Summary at the podcast or
// episode boundary and never abort sibling work; Run only returns an error
// when the roster or store is unusable.
//
// After the run the Summary is exported as a Prometheus textfile and sent as
// an ntfy notification when those are configured.
package workflow
