package feeds_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podwatch/internal/feeds"
	"podwatch/internal/roster"
	"podwatch/internal/services"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

const windowFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
  <title>Demo Show</title>
  <item>
    <title>Fresh Episode</title>
    <guid>fresh-guid</guid>
    <link>https://example.com/fresh</link>
    <pubDate>Sat, 17 Oct 2026 08:00:00 +0000</pubDate>
    <description><![CDATA[<p>Hosts discuss the <b>budget</b> fight &amp; more.</p><p>Second paragraph.</p>]]></description>
    <enclosure url="https://cdn.example.com/fresh.mp3" type="audio/mpeg" length="123"/>
  </item>
  <item>
    <title>Stale Episode</title>
    <guid>stale-guid</guid>
    <pubDate>Mon, 05 Oct 2026 08:00:00 +0000</pubDate>
    <description>Old news.</description>
  </item>
</channel>
</rss>`

const partiallyBrokenFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
  <title>Messy Show</title>
  <item>
    <title>No Date At All</title>
    <guid>undated</guid>
  </item>
  <item>
    <pubDate>Sat, 17 Oct 2026 08:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Good One</title>
    <pubDate>Sat, 17 Oct 2026 09:00:00 +0000</pubDate>
    <itunes:summary>Summary only text.</itunes:summary>
  </item>
</channel>
</rss>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Podcast-Intelligence-Monitor") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient() *feeds.Client {
	return feeds.NewClient(feeds.Config{},
		feeds.WithClock(func() time.Time { return fixedNow }),
		feeds.WithRetry(2, 0),
	)
}

func podcastAt(url string) roster.Podcast {
	return roster.Podcast{Name: "Demo Show", Lean: roster.LeanLeft, FeedURL: url}
}

func TestFetchFiltersByWindow(t *testing.T) {
	server := serve(t, http.StatusOK, windowFeed)

	feed, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	candidates := feed.Collect()
	if len(candidates) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(candidates))
	}
	if feed.OutsideWindow() != 1 || feed.Skipped() != 0 {
		t.Fatalf("unexpected counters: outside=%d skipped=%d", feed.OutsideWindow(), feed.Skipped())
	}
	got := candidates[0]
	if got.Title != "Fresh Episode" || got.GUID != "fresh-guid" || got.Lean != roster.LeanLeft {
		t.Fatalf("unexpected candidate %+v", got)
	}
	if got.AudioURL != "https://cdn.example.com/fresh.mp3" {
		t.Fatalf("unexpected audio url %q", got.AudioURL)
	}
	if got.Description != "Hosts discuss the budget fight & more.\nSecond paragraph." {
		t.Fatalf("unexpected description %q", got.Description)
	}
	want := feeds.EpisodeID("Demo Show", "fresh-guid", "", "", time.Time{})
	if got.ID != want {
		t.Fatalf("expected guid-derived id %s, got %s", want, got.ID)
	}
}

func TestFetchTwiceYieldsSameIDs(t *testing.T) {
	server := serve(t, http.StatusOK, windowFeed)
	client := newClient()

	first, err := client.Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if err != nil {
		t.Fatalf("first Fetch returned error: %v", err)
	}
	second, err := client.Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
	a, b := first.Collect(), second.Collect()
	if len(a) != len(b) || a[0].ID != b[0].ID {
		t.Fatalf("expected identical candidates, got %v and %v", a, b)
	}
}

func TestFetchSkipsMalformedItems(t *testing.T) {
	server := serve(t, http.StatusOK, partiallyBrokenFeed)

	feed, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	candidates := feed.Collect()
	if len(candidates) != 1 || candidates[0].Title != "Good One" {
		t.Fatalf("expected only the good item, got %+v", candidates)
	}
	if feed.Skipped() != 2 {
		t.Fatalf("expected 2 skipped items, got %d", feed.Skipped())
	}
	if candidates[0].Description != "Summary only text." {
		t.Fatalf("expected itunes summary fallback, got %q", candidates[0].Description)
	}
	published := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	if candidates[0].ID != feeds.EpisodeID("Demo Show", "", "", "Good One", published) {
		t.Fatalf("expected title+date derived id, got %s", candidates[0].ID)
	}
}

func TestFetchMalformedDocument(t *testing.T) {
	server := serve(t, http.StatusOK, "<html><body>not a feed</body></html>")

	_, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if !errors.Is(err, services.ErrFeedMalformed) {
		t.Fatalf("expected feed malformed, got %v", err)
	}
}

func TestFetchHTTPErrorIsUnreachable(t *testing.T) {
	server := serve(t, http.StatusNotFound, "gone")

	_, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if !errors.Is(err, services.ErrFeedUnreachable) {
		t.Fatalf("expected feed unreachable, got %v", err)
	}
}

func TestFetchConnectionRefusedIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient().Fetch(context.Background(), podcastAt(url), 48*time.Hour)
	if !errors.Is(err, services.ErrFeedUnreachable) {
		t.Fatalf("expected feed unreachable, got %v", err)
	}
}

func TestFetchRetriesAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(300 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte(windowFeed))
	}))
	t.Cleanup(server.Close)

	client := feeds.NewClient(feeds.Config{Timeout: 100 * time.Millisecond},
		feeds.WithClock(func() time.Time { return fixedNow }),
		feeds.WithRetry(2, 0),
	)
	feed, err := client.Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got := len(feed.Collect()); got != 1 {
		t.Fatalf("expected 1 candidate, got %d", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchRetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	_, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour)
	if !errors.Is(err, services.ErrFeedUnreachable) {
		t.Fatalf("expected feed unreachable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	if _, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
}

func TestFetchInvalidLocator(t *testing.T) {
	_, err := newClient().Fetch(context.Background(), podcastAt("not a url"), 48*time.Hour)
	if !errors.Is(err, services.ErrFeedUnreachable) || !strings.Contains(err.Error(), "invalid feed url") {
		t.Fatalf("expected invalid feed url, got %v", err)
	}
}

func TestFetchPacingDeadlineIsNotInvalidURL(t *testing.T) {
	server := serve(t, http.StatusOK, windowFeed)
	client := feeds.NewClient(feeds.Config{HostInterval: time.Hour},
		feeds.WithClock(func() time.Time { return fixedNow }),
		feeds.WithRetry(1, 0),
	)
	if _, err := client.Fetch(context.Background(), podcastAt(server.URL), 48*time.Hour); err != nil {
		t.Fatalf("first Fetch returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.Fetch(ctx, podcastAt(server.URL), 48*time.Hour)
	if err == nil {
		t.Fatal("expected the host limiter to refuse the second fetch")
	}
	if strings.Contains(err.Error(), "invalid feed url") {
		t.Fatalf("pacing failure mislabelled: %v", err)
	}
	if !strings.Contains(err.Error(), "host rate limiter") {
		t.Fatalf("expected rate limiter detail, got %v", err)
	}
}

func TestFetchWithoutLocatorYieldsNothing(t *testing.T) {
	feed, err := newClient().Fetch(context.Background(), podcastAt(""), 48*time.Hour)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(feed.Collect()) != 0 {
		t.Fatal("expected no candidates")
	}
}

func TestCandidatesStopsEarly(t *testing.T) {
	server := serve(t, http.StatusOK, partiallyBrokenFeed)
	feed, err := newClient().Fetch(context.Background(), podcastAt(server.URL), 0)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	seen := 0
	for range feed.Candidates() {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected iteration to stop after one candidate, got %d", seen)
	}
}
