package feeds

import (
	"testing"
	"time"
)

func TestEpisodeIDFallbackOrder(t *testing.T) {
	published := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	byGUID := EpisodeID("Show", "guid-1", "https://x/1", "Title", published)
	if byGUID != EpisodeID("Show", "guid-1", "https://other", "Other", published.Add(time.Hour)) {
		t.Fatal("guid should dominate the identity")
	}
	byLink := EpisodeID("Show", "", "https://x/1", "Title", published)
	if byLink == byGUID {
		t.Fatal("link-derived id should differ from guid-derived id")
	}
	if byLink != EpisodeID("Show", "  ", "https://x/1", "Changed", published) {
		t.Fatal("link should dominate when guid is blank")
	}
	byTitle := EpisodeID("Show", "", "", "Title", published)
	if byTitle == EpisodeID("Show", "", "", "Title", published.Add(time.Minute)) {
		t.Fatal("title fallback must include publish time")
	}
	if len(byGUID) != episodeIDLength {
		t.Fatalf("expected %d chars, got %d", episodeIDLength, len(byGUID))
	}
}

func TestEpisodeIDNamespacedByPodcast(t *testing.T) {
	published := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	if EpisodeID("Show A", "same", "", "", published) == EpisodeID("Show B", "same", "", "", published) {
		t.Fatal("identical guids in different podcasts must not collide")
	}
}

func TestCleanDescription(t *testing.T) {
	raw := `<div>Line one&nbsp;with   <a href="https://x">link</a></div><br/><ul><li>Item &#8220;quoted&#8221;</li></ul><script>alert(1)</script>`
	got := CleanDescription(raw, 0)
	want := "Line one with link\nItem “quoted”"
	if got != want {
		t.Fatalf("CleanDescription() = %q, want %q", got, want)
	}
}

func TestCleanDescriptionCapsAtWordBoundary(t *testing.T) {
	got := CleanDescription("alpha beta gamma delta", 13)
	if got != "alpha beta" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if CleanDescription("   ", 10) != "" {
		t.Fatal("blank input should stay blank")
	}
}
