// Command podwatch monitors a roster of political podcasts.
//
// It fetches each podcast's feed, resolves the best available episode text
// (caption transcript or feed description), asks an LLM for a structured
// analysis, and stores the results in SQLite. The report subcommands read the
// database back; the daemon subcommand repeats the pipeline on an interval.
package main
