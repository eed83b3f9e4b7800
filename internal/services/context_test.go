package services_test

import (
	"context"
	"testing"

	"podwatch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithPodcast(ctx, "The Daily")
	ctx = services.WithEpisodeID(ctx, "abc123")
	ctx = services.WithStage(ctx, "analyzing")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if name, ok := services.PodcastFromContext(ctx); !ok || name != "The Daily" {
		t.Fatalf("unexpected podcast: %v %v", name, ok)
	}
	if id, ok := services.EpisodeIDFromContext(ctx); !ok || id != "abc123" {
		t.Fatalf("unexpected episode id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyzing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithEpisodeID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.EpisodeIDFromContext(ctx); ok {
		t.Fatal("expected no episode id value")
	}
}
