// Package episodelock guards episodes against concurrent analysis.
//
// A Guard combines an in-process set of held episode ids with one advisory
// flock per episode under the configured lock directory, so two goroutines in
// one run and two overlapping runs in separate processes both see the
// episode as busy. Acquisition never blocks: a busy episode is skipped for
// this run and picked up by a later one if it is still unanalyzed.
package episodelock
