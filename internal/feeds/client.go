package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podwatch/internal/roster"
	"podwatch/internal/services"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultUserAgent      = "Podcast-Intelligence-Monitor/1.0"
	defaultMaxDescription = 5000
	maxFeedBytes          = 16 << 20
	defaultAttempts       = 2
	defaultRetryBackoff   = 500 * time.Millisecond
	stage                 = "fetch"
)

// Config captures feed polling settings.
type Config struct {
	Timeout             time.Duration
	UserAgent           string
	HostInterval        time.Duration
	MaxDescriptionChars int
}

// Client fetches and parses podcast feeds.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	limiter        *HostLimiter
	maxDescription int
	attempts       int
	backoff        time.Duration
	now            func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for window cutoffs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetry sets how many times a timed-out or 5xx download is attempted and
// the wait before the second attempt, doubling after that.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.backoff = max(backoff, 0)
	}
}

// NewClient constructs a feed client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		userAgent:      strings.TrimSpace(cfg.UserAgent),
		limiter:        NewHostLimiter(cfg.HostInterval),
		maxDescription: cfg.MaxDescriptionChars,
		attempts:       defaultAttempts,
		backoff:        defaultRetryBackoff,
		now:            time.Now,
	}
	if client.userAgent == "" {
		client.userAgent = defaultUserAgent
	}
	if client.maxDescription <= 0 {
		client.maxDescription = defaultMaxDescription
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch downloads and parses the podcast's feed. Items are converted lazily by
// Feed.Candidates. A podcast without a feed locator yields an empty feed.
func (c *Client) Fetch(ctx context.Context, podcast roster.Podcast, window time.Duration) (*Feed, error) {
	feed := &Feed{podcast: podcast, maxDescription: c.maxDescription}
	if window > 0 {
		feed.cutoff = c.now().Add(-window)
	}
	locator := strings.TrimSpace(podcast.FeedURL)
	if locator == "" {
		return feed, nil
	}

	body, err := c.download(ctx, locator)
	if err != nil {
		return nil, err
	}
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrFeedMalformed, stage, "parse", podcast.Name, err)
	}
	feed.title = strings.TrimSpace(parsed.Title)
	feed.items = parsed.Items
	return feed, nil
}

// download fetches the feed body, retrying transient failures.
func (c *Client) download(ctx context.Context, locator string) ([]byte, error) {
	if parsed, err := url.Parse(locator); err != nil || parsed.Host == "" {
		if err == nil {
			err = errors.New("missing host")
		}
		return nil, services.Wrap(services.ErrFeedUnreachable, stage, "download", "invalid feed url", err)
	}
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		body, transient, err := c.get(ctx, locator)
		if err == nil || !transient || attempt >= c.attempts {
			return body, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

// get performs one paced request. transient marks failures worth another try:
// transport errors such as timeouts, 408, 429 and 5xx.
func (c *Client) get(ctx context.Context, locator string) (body []byte, transient bool, err error) {
	if err := c.limiter.Wait(ctx, locator); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, services.Wrap(services.ErrFeedUnreachable, stage, "download", "host rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, false, services.Wrap(services.ErrFeedUnreachable, stage, "download", "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, true, services.Wrap(services.ErrFeedUnreachable, stage, "download", locator, err)
	}
	defer resp.Body.Close()

	if code := resp.StatusCode; code >= http.StatusBadRequest {
		transient = code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		return nil, transient, services.Wrap(services.ErrFeedUnreachable, stage, "download", fmt.Sprintf("%s: http %d", locator, code), nil)
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, true, services.Wrap(services.ErrFeedUnreachable, stage, "download", "read body", err)
	}
	return body, false, nil
}
