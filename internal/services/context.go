package services

import "context"

type contextKey uint8

const (
	runIDKey contextKey = iota
	podcastKey
	episodeIDKey
	stageKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key contextKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithRunID tags ctx with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

// RunIDFromContext returns the run identifier set by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, runIDKey) }

// WithPodcast tags ctx with the podcast being processed.
func WithPodcast(ctx context.Context, name string) context.Context {
	return withValue(ctx, podcastKey, name)
}

func PodcastFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, podcastKey) }

// WithEpisodeID tags ctx with the stable episode identifier.
func WithEpisodeID(ctx context.Context, id string) context.Context {
	return withValue(ctx, episodeIDKey, id)
}

func EpisodeIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, episodeIDKey) }

// WithStage tags ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, stageKey) }
