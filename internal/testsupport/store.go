package testsupport

import (
	"context"
	"testing"
	"time"

	"podwatch/internal/config"
	"podwatch/internal/roster"
	"podwatch/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedPodcasts upserts the podcasts and returns them as a roster.
func SeedPodcasts(t testing.TB, st *store.Store, podcasts ...roster.Podcast) *roster.Roster {
	t.Helper()

	r, err := roster.New(podcasts)
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}
	if err := st.UpsertPodcasts(context.Background(), r.Podcasts()); err != nil {
		t.Fatalf("UpsertPodcasts: %v", err)
	}
	return r
}

// InsertEpisode stores an episode for the podcast published at the given time.
func InsertEpisode(t testing.TB, st *store.Store, p roster.Podcast, id, title string, published time.Time) store.Episode {
	t.Helper()

	ep := store.Episode{
		ID:          id,
		Podcast:     p.Name,
		Lean:        p.Lean,
		Title:       title,
		PublishedAt: published,
		Description: title + " description",
	}
	if _, err := st.UpsertEpisode(context.Background(), ep); err != nil {
		t.Fatalf("UpsertEpisode: %v", err)
	}
	return ep
}
