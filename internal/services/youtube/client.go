package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"podwatch/internal/language"
	"podwatch/internal/services"
)

const (
	defaultBaseURL     = "https://www.youtube.com"
	defaultHTTPTimeout = 20 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) podwatch"
	channelCacheSize   = 512
	maxBodyBytes       = 8 << 20
	defaultAttempts    = 2
	defaultBackoff     = time.Second
	stage              = "resolve"
)

// Config captures the runtime settings for the caption source.
type Config struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	// Languages lists caption languages in preference order.
	Languages []string
	// CacheTTL bounds how long a channel listing is reused. Zero disables caching.
	CacheTTL time.Duration
}

// Video is one upload in a channel listing.
type Video struct {
	ID          string
	Title       string
	PublishedAt time.Time
}

// Client reads channel listings and caption tracks from the video platform.
type Client struct {
	baseURL    string
	userAgent  string
	languages  []string
	httpClient *http.Client
	limiter    *rate.Limiter
	listings   *expirable.LRU[string, []Video]
	attempts   int
	backoff    time.Duration
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

// WithRetry sets how many times a rate-limited, 5xx or timed-out request is
// attempted and the wait before the second attempt, doubling after that.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		c.backoff = max(backoff, 0)
	}
}

// NewClient constructs a caption source client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	languages := language.NormalizeList(cfg.Languages)
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		languages:  languages,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.userAgent == "" {
		client.userAgent = defaultUserAgent
	}
	if cfg.CacheTTL > 0 {
		client.listings = expirable.NewLRU[string, []Video](channelCacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ChannelVideos returns the channel's recent uploads, newest first.
func (c *Client) ChannelVideos(ctx context.Context, channelID string) ([]Video, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, services.Wrap(services.ErrValidation, stage, "channel videos", "channel id required", nil)
	}
	if c.listings != nil {
		if cached, ok := c.listings.Get(channelID); ok {
			return slices.Clone(cached), nil
		}
	}

	endpoint := c.baseURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
	body, err := c.get(ctx, endpoint, "channel videos")
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscriptUnavailable, stage, "channel videos", "parse channel listing", err)
	}

	videos := make([]Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		id := videoIDFromItem(item)
		if id == "" {
			continue
		}
		video := Video{ID: id, Title: strings.TrimSpace(item.Title)}
		switch {
		case item.PublishedParsed != nil:
			video.PublishedAt = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			video.PublishedAt = item.UpdatedParsed.UTC()
		}
		videos = append(videos, video)
	}
	slices.SortStableFunc(videos, func(a, b Video) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	if c.listings != nil {
		c.listings.Add(channelID, slices.Clone(videos))
	}
	return videos, nil
}

func videoIDFromItem(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if values := yt["videoId"]; len(values) > 0 {
			if id := strings.TrimSpace(values[0].Value); id != "" {
				return id
			}
		}
	}
	if id, ok := strings.CutPrefix(strings.TrimSpace(item.GUID), "yt:video:"); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

// Captions fetches and flattens the caption track of a video. Missing,
// paywalled, or empty captions return services.ErrTranscriptUnavailable.
func (c *Client) Captions(ctx context.Context, videoID string) (string, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return "", services.Wrap(services.ErrValidation, stage, "captions", "video id required", nil)
	}

	page, err := c.get(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID), "watch page")
	if err != nil {
		return "", err
	}
	player, err := extractPlayerResponse(page)
	if err != nil {
		return "", services.Wrap(services.ErrTranscriptUnavailable, stage, "captions", "player response", err)
	}
	if status := strings.ToUpper(strings.TrimSpace(player.PlayabilityStatus.Status)); status != "" && status != "OK" {
		return "", services.Wrap(
			services.ErrTranscriptUnavailable,
			stage,
			"captions",
			fmt.Sprintf("video not playable (%s)", strings.ToLower(status)),
			nil,
		)
	}

	track, ok := pickTrack(player.Captions.Renderer.Tracks, c.languages)
	if !ok {
		return "", services.Wrap(services.ErrTranscriptUnavailable, stage, "captions", "no caption tracks", nil)
	}
	trackURL, err := c.resolveURL(track.BaseURL)
	if err != nil {
		return "", services.Wrap(services.ErrTranscriptUnavailable, stage, "captions", "caption track url", err)
	}
	raw, err := c.get(ctx, trackURL, "timed text")
	if err != nil {
		return "", err
	}
	text, err := flattenTimedText(raw)
	if err != nil {
		return "", services.Wrap(services.ErrTranscriptUnavailable, stage, "captions", "parse timed text", err)
	}
	if text == "" {
		return "", services.Wrap(services.ErrTranscriptUnavailable, stage, "captions", "empty caption track", nil)
	}
	return text, nil
}

func (c *Client) resolveURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty track url")
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	target, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(target).String(), nil
}

// get fetches endpoint, retrying failures services.Retryable accepts.
func (c *Client) get(ctx context.Context, endpoint, op string) ([]byte, error) {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		body, err := c.getOnce(ctx, endpoint, op)
		if err == nil || attempt >= c.attempts || ctx.Err() != nil || !services.Retryable(err) {
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

func (c *Client) getOnce(ctx context.Context, endpoint, op string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrRateLimited, stage, op, "local rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, op, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", strings.Join(c.languages, ","))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrServiceUnavailable, stage, op, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, stage, op, "http 429", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, services.Wrap(services.ErrServiceUnavailable, stage, op, fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, services.Wrap(services.ErrTranscriptUnavailable, stage, op, fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrServiceUnavailable, stage, op, "read body", err)
	}
	return body, nil
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			Tracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// pickTrack prefers an auto-generated track in a configured language, then
// any track in that language, then the first listed track.
func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range languages {
		for _, track := range tracks {
			if language.Matches(track.LanguageCode, lang) && strings.EqualFold(track.Kind, "asr") {
				return track, true
			}
		}
		for _, track := range tracks {
			if language.Matches(track.LanguageCode, lang) {
				return track, true
			}
		}
	}
	return tracks[0], true
}

// unmarshalPlayer decodes the player response JSON.
func unmarshalPlayer(raw string) (playerResponse, error) {
	var player playerResponse
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return player, fmt.Errorf("decode player response: %w", err)
	}
	return player, nil
}
