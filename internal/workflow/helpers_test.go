package workflow_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"podwatch/internal/analysis"
	"podwatch/internal/config"
	"podwatch/internal/episodelock"
	"podwatch/internal/feeds"
	"podwatch/internal/logging"
	"podwatch/internal/notifications"
	"podwatch/internal/roster"
	"podwatch/internal/services/llm"
	"podwatch/internal/services/youtube"
	"podwatch/internal/store"
	"podwatch/internal/testsupport"
	"podwatch/internal/transcript"
	"podwatch/internal/workflow"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

const mediumReply = `{
  "synopsis": "The hosts frame the budget deal as a betrayal.",
  "key_topics": ["budget", "spending"],
  "notable_quotes": [
    {"quote": "They sold us out.", "speaker": "Host", "context": "On the deal.", "type": "attack"}
  ],
  "political_attacks": [{"target": "Congress", "claim": "Caved on spending."}],
  "narrative_themes": ["betrayal"],
  "messaging_opportunities": ["Point to the deal's deficit cuts."],
  "threat_level": "medium",
  "threat_rationale": "Repeatable frame with a mid-size audience."
}`

const highReply = `{
  "synopsis": "A coordinated push on election fraud claims.",
  "key_topics": ["elections"],
  "notable_quotes": [],
  "political_attacks": [{"target": "Election officials", "claim": "Rigged the count."}],
  "narrative_themes": ["stolen election"],
  "messaging_opportunities": [],
  "threat_level": "high",
  "threat_rationale": "Large reach and a false claim."
}`

const extremeReply = `{
  "synopsis": "Summary.",
  "key_topics": [],
  "notable_quotes": [],
  "political_attacks": [],
  "narrative_themes": [],
  "messaging_opportunities": [],
  "threat_level": "extreme",
  "threat_rationale": "Off the scale."
}`

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

type item struct {
	guid        string
	title       string
	published   time.Time
	description string
}

func rss(title string, items ...item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<rss version=\"2.0\"><channel>\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", title)
	for _, it := range items {
		fmt.Fprintf(&b, "<item><guid>%s</guid><title>%s</title><pubDate>%s</pubDate><description>%s</description></item>\n",
			it.guid, it.title, it.published.Format(time.RFC1123Z), it.description)
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

// routingCompleter answers by episode title so parallel lanes get stable
// replies regardless of scheduling.
type routingCompleter struct {
	mu       sync.Mutex
	byTitle  map[string]string
	fallback string
	calls    map[string]int
}

func (c *routingCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var title string
	for _, m := range messages {
		if m.Role != llm.RoleUser {
			continue
		}
		for line := range strings.SplitSeq(m.Content, "\n") {
			if rest, ok := strings.CutPrefix(line, "Episode Title: "); ok {
				title = rest
				break
			}
		}
		if title != "" {
			break
		}
	}
	c.calls[title]++
	if reply, ok := c.byTitle[title]; ok {
		return reply, nil
	}
	return c.fallback, nil
}

func (c *routingCompleter) callsFor(title string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[title]
}

func (c *routingCompleter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

type fakeCaptions struct {
	mu       sync.Mutex
	videos   []youtube.Video
	text     string
	fetched  []string
	listings int
}

func (f *fakeCaptions) ChannelVideos(_ context.Context, _ string) ([]youtube.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings++
	return f.videos, nil
}

func (f *fakeCaptions) Captions(_ context.Context, videoID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, videoID)
	return f.text, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []notifications.RunReport
}

func (r *recordingNotifier) NotifyRunCompleted(_ context.Context, report notifications.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	t         *testing.T
	cfg       *config.Config
	store     *store.Store
	completer *routingCompleter
	captions  *fakeCaptions
	notifier  *recordingNotifier
	server    *httptest.Server

	mu       sync.Mutex
	feeds    map[string]string
	podcasts []roster.Podcast
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		t:         t,
		cfg:       cfg,
		store:     testsupport.MustOpenStore(t, cfg),
		completer: &routingCompleter{byTitle: map[string]string{}, fallback: mediumReply, calls: map[string]int{}},
		captions:  &fakeCaptions{},
		notifier:  &recordingNotifier{},
		feeds:     map[string]string{},
	}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		body, ok := h.feeds[r.URL.Path]
		h.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(h.server.Close)
	return h
}

// addPodcast registers a podcast whose feed is served at path.
func (h *harness) addPodcast(p roster.Podcast, path, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p.FeedURL = h.server.URL + path
	h.podcasts = append(h.podcasts, p)
	h.feeds[path] = body
}

func (h *harness) setFeed(path, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feeds[path] = body
}

func (h *harness) dependencies() (workflow.Dependencies, error) {
	guard, err := episodelock.New(h.cfg.EpisodeLockDir())
	if err != nil {
		return workflow.Dependencies{}, err
	}
	clock := func() time.Time { return now }
	return workflow.Dependencies{
		Feeds:    feeds.NewClient(feeds.Config{}, feeds.WithClock(clock)),
		Resolver: transcript.NewResolver(h.captions, transcript.Config{}, logging.NewNop()),
		Analyzer: analysis.NewInvoker(h.completer, analysis.Config{RepairAttempts: 1, Model: "test-model"},
			logging.NewNop(), analysis.WithClock(clock)),
		Guard:    guard,
		Notifier: h.notifier,
		Roster: func() (*roster.Roster, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return roster.New(h.podcasts)
		},
		Clock: clock,
	}, nil
}

func (h *harness) orchestratorWith(st workflow.EpisodeStore) *workflow.Orchestrator {
	h.t.Helper()
	deps, err := h.dependencies()
	if err != nil {
		h.t.Fatalf("dependencies: %v", err)
	}
	o, err := workflow.New(h.cfg, st, logging.NewNop(), deps)
	if err != nil {
		h.t.Fatalf("workflow.New: %v", err)
	}
	return o
}

func (h *harness) run(opts workflow.RunOptions) *workflow.Summary {
	h.t.Helper()
	summary, err := h.orchestratorWith(h.store).Run(context.Background(), opts)
	if err != nil {
		h.t.Fatalf("Run failed: %v", err)
	}
	return summary
}

// episodeByTitle finds a stored episode by its title.
func (h *harness) episodeByTitle(title string) store.EpisodeListing {
	h.t.Helper()
	listings, err := h.store.EpisodesByLean(context.Background(), store.EpisodeFilter{})
	if err != nil {
		h.t.Fatalf("EpisodesByLean: %v", err)
	}
	for _, l := range listings {
		if l.Title == title {
			return l
		}
	}
	h.t.Fatalf("episode %q not stored; have %d episodes", title, len(listings))
	return store.EpisodeListing{}
}
