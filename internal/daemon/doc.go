// Package daemon runs the podcast pipeline on a fixed interval.
//
// A flock on lock_dir/podwatchd.lock keeps a second daemon from starting. The
// lock is separate from the per-episode locks, so a manual `podwatch run` can
// overlap a scheduled one and the episode guard keeps them apart. Failed runs
// are logged and reported through the notification service; the loop keeps
// going.
package daemon
