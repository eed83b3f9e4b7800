package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"podwatch/internal/logging"
	"podwatch/internal/services"
	"podwatch/internal/services/youtube"
	"podwatch/internal/textutil"
)

// SourceKind records which source produced an episode's body text.
type SourceKind string

const (
	KindVideoTranscript SourceKind = "video_transcript"
	KindRSSDescription  SourceKind = "rss_description"
	KindNone            SourceKind = "none"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case KindVideoTranscript, KindRSSDescription, KindNone:
		return true
	default:
		return false
	}
}

const (
	defaultMatchWindow   = 48 * time.Hour
	defaultMinSimilarity = 0.5
)

// CaptionSource lists channel uploads and fetches caption text.
type CaptionSource interface {
	ChannelVideos(ctx context.Context, channelID string) ([]youtube.Video, error)
	Captions(ctx context.Context, videoID string) (string, error)
}

// Request describes the episode being resolved.
type Request struct {
	EpisodeID   string
	Podcast     string
	Title       string
	PublishedAt time.Time
	Description string
	ChannelID   string
}

// Result is the best available body text for an episode.
type Result struct {
	Body      string
	Kind      SourceKind
	WordCount int
	VideoID   string
	// Reason explains why richer sources were not used.
	Reason string
}

// Config tunes episode-to-video matching.
type Config struct {
	MatchWindow   time.Duration
	MinSimilarity float64
}

// Resolver produces body text through ordered source attempts.
type Resolver struct {
	captions CaptionSource
	cfg      Config
	logger   *slog.Logger
}

// NewResolver constructs a resolver. A nil caption source disables the video
// transcript step.
func NewResolver(captions CaptionSource, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.MatchWindow <= 0 {
		cfg.MatchWindow = defaultMatchWindow
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = defaultMinSimilarity
	}
	return &Resolver{
		captions: captions,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "transcript"),
	}
}

// Resolve tries the video transcript, then the feed description. Source
// failures only degrade the result; the returned error is non-nil only when
// ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, r.logger)

	var reason string
	switch {
	case strings.TrimSpace(req.ChannelID) == "":
		reason = "no channel id"
	case r.captions == nil:
		reason = "caption source disabled"
	default:
		result, why, err := r.fromVideo(ctx, req)
		if err != nil {
			return Result{}, err
		}
		if result != nil {
			logger.Debug("resolved video transcript",
				logging.String("video_id", result.VideoID),
				logging.Int("words", result.WordCount),
				logging.String(logging.FieldSourceKind, string(result.Kind)),
			)
			return *result, nil
		}
		reason = why
	}

	if body := strings.TrimSpace(req.Description); body != "" {
		logger.Debug("falling back to feed description",
			logging.String("reason", reason),
			logging.String(logging.FieldSourceKind, string(KindRSSDescription)),
		)
		return Result{
			Body:      body,
			Kind:      KindRSSDescription,
			WordCount: textutil.WordCount(body),
			Reason:    reason,
		}, nil
	}

	if reason == "" {
		reason = "description empty"
	} else {
		reason += "; description empty"
	}
	return Result{Kind: KindNone, Reason: reason}, nil
}

func (r *Resolver) fromVideo(ctx context.Context, req Request) (*Result, string, error) {
	logger := logging.WithContext(ctx, r.logger)

	videos, err := r.captions.ChannelVideos(ctx, req.ChannelID)
	if err != nil {
		if cancelled(ctx, err) {
			return nil, "", ctx.Err()
		}
		r.warn(logger, "channel listing failed", err)
		return nil, "channel listing unavailable: " + string(services.Classify(err)), nil
	}

	match, ok := MatchVideo(req.Title, req.PublishedAt, videos, r.cfg.MinSimilarity, r.cfg.MatchWindow)
	if !ok {
		return nil, "no matching video", nil
	}

	text, err := r.captions.Captions(ctx, match.Video.ID)
	if err != nil {
		if cancelled(ctx, err) {
			return nil, "", ctx.Err()
		}
		if !errors.Is(err, services.ErrTranscriptUnavailable) {
			r.warn(logger, "caption fetch failed", err)
		}
		return nil, "captions unavailable: " + string(services.Classify(err)), nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "captions empty", nil
	}
	return &Result{
		Body:      text,
		Kind:      KindVideoTranscript,
		WordCount: textutil.WordCount(text),
		VideoID:   match.Video.ID,
	}, "", nil
}

func (r *Resolver) warn(logger *slog.Logger, msg string, err error) {
	logging.WarnWithContext(logger, msg, "caption_source_degraded",
		logging.Error(err),
		logging.String(logging.FieldCategory, string(services.Classify(err))),
		logging.String(logging.FieldErrorHint, "check caption source reachability and rate limits"),
		logging.String(logging.FieldImpact, "episode falls back to feed description"),
	)
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}
