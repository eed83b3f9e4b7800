package workflow

import (
	"context"
	"errors"
	"log/slog"
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
	"podwatch/internal/transcript"
)

// FeedFetcher downloads and parses one podcast feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, podcast roster.Podcast, window time.Duration) (*feeds.Feed, error)
}

// TranscriptResolver produces the body text for an episode.
type TranscriptResolver interface {
	Resolve(ctx context.Context, req transcript.Request) (transcript.Result, error)
}

// EpisodeAnalyzer turns episode text into a validated analysis.
type EpisodeAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.Analysis, error)
}

// EpisodeStore is the persistence surface a run writes through.
type EpisodeStore interface {
	UpsertPodcasts(ctx context.Context, podcasts []roster.Podcast) error
	UpsertEpisode(ctx context.Context, ep store.Episode) (bool, error)
	PendingEpisodes(ctx context.Context, q store.PendingQuery) ([]store.Episode, error)
	HasAnalysis(ctx context.Context, episodeID string) (bool, error)
	UpsertAnalysis(ctx context.Context, episodeID string, a analysis.Analysis) error
	MarkSkipped(ctx context.Context, episodeID, reason string, kind transcript.SourceKind) error
	MarkFailed(ctx context.Context, episodeID, reason string, kind transcript.SourceKind) error
}

// Dependencies wires the orchestrator's collaborators. NewFromConfig fills
// them from configuration; tests supply fakes.
type Dependencies struct {
	Feeds    FeedFetcher
	Resolver TranscriptResolver
	Analyzer EpisodeAnalyzer
	Guard    *episodelock.Guard
	Notifier notifications.Service
	// Roster loads the podcast list once per run.
	Roster func() (*roster.Roster, error)
	Clock  func() time.Time
}

// Orchestrator drives fetch, resolve and analyze across the roster.
type Orchestrator struct {
	cfg    *config.Config
	store  EpisodeStore
	logger *slog.Logger
	deps   Dependencies
}

// New constructs an orchestrator from explicit dependencies.
func New(cfg *config.Config, st EpisodeStore, logger *slog.Logger, deps Dependencies) (*Orchestrator, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("orchestrator requires config and store")
	}
	if deps.Feeds == nil || deps.Resolver == nil || deps.Analyzer == nil || deps.Guard == nil || deps.Roster == nil {
		return nil, errors.New("orchestrator requires feeds, resolver, analyzer, guard, and roster")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "workflow"),
		deps:   deps,
	}, nil
}

// NewFromConfig builds the production clients from configuration.
func NewFromConfig(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator requires config")
	}
	guard, err := episodelock.New(cfg.EpisodeLockDir())
	if err != nil {
		return nil, err
	}

	feedClient := feeds.NewClient(feeds.Config{
		Timeout:             time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second,
		UserAgent:           cfg.Feeds.UserAgent,
		HostInterval:        time.Duration(cfg.Feeds.HostIntervalMillis) * time.Millisecond,
		MaxDescriptionChars: cfg.Feeds.MaxDescriptionChars,
	})

	var captions transcript.CaptionSource
	if cfg.YouTube.Enabled {
		captions = youtube.NewClient(youtube.Config{
			BaseURL:           cfg.YouTube.BaseURL,
			RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
			Timeout:           time.Duration(cfg.YouTube.TimeoutSeconds) * time.Second,
			Languages:         cfg.YouTube.CaptionLanguages,
			CacheTTL:          time.Duration(cfg.YouTube.CacheTTLMinutes) * time.Minute,
		})
	}
	resolver := transcript.NewResolver(captions, transcript.Config{
		MatchWindow:   time.Duration(cfg.YouTube.MatchWindowHours) * time.Hour,
		MinSimilarity: cfg.YouTube.MinTitleSimilarity,
	}, logger)

	client := NewLLMClient(cfg)
	invoker := analysis.NewInvoker(client, analysis.Config{
		MaxInputWords:  cfg.Analysis.MaxInputWords,
		HeadRatio:      cfg.Analysis.HeadRatio,
		RepairAttempts: cfg.Analysis.RepairAttempts,
		Model:          client.Model(),
	}, logger)

	rosterPath := cfg.Paths.RosterFile
	return New(cfg, st, logger, Dependencies{
		Feeds:    feedClient,
		Resolver: resolver,
		Analyzer: invoker,
		Guard:    guard,
		Notifier: notifications.NewService(cfg),
		Roster: func() (*roster.Roster, error) {
			return roster.Load(rosterPath)
		},
	})
}

// NewLLMClient builds the analysis model client from the llm config section.
func NewLLMClient(cfg *config.Config) *llm.Client {
	llmCfg := cfg.GetLLM()
	return llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	},
		llm.WithRetryMaxAttempts(llmCfg.RetryAttempts),
		llm.WithRetryBackoff(llmCfg.RetryBaseDelay, llmCfg.RetryMaxDelay),
	)
}
