package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"podwatch/internal/analysis"
	"podwatch/internal/logging"
	"podwatch/internal/roster"
	"podwatch/internal/services"
	"podwatch/internal/store"
	"podwatch/internal/transcript"
)

// RunOptions tunes a single run. Zero values fall back to configuration.
// When neither Fetch nor Analyze is set both phases run.
type RunOptions struct {
	Window      time.Duration
	Fetch       bool
	Analyze     bool
	MaxEpisodes int
	Workers     int
	RetryFailed bool
	Reanalyze   bool
}

func (o *Orchestrator) normalize(opts RunOptions) RunOptions {
	if !opts.Fetch && !opts.Analyze {
		opts.Fetch, opts.Analyze = true, true
	}
	if opts.Window <= 0 {
		opts.Window = o.cfg.LookbackWindow()
	}
	if opts.MaxEpisodes <= 0 {
		opts.MaxEpisodes = o.cfg.Pipeline.MaxEpisodes
	}
	if opts.Workers <= 0 {
		opts.Workers = o.cfg.Pipeline.Workers
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return opts
}

// Run fetches every roster feed and analyzes pending episodes inside the
// window. Per-podcast and per-episode failures are recorded in the summary;
// only roster or store failures, or a context cancelled before the run
// started, are returned as errors. A run cancelled midway returns its partial
// summary with Canceled set.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = o.normalize(opts)

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: o.deps.Clock(),
		Window:    opts.Window,
	}
	rec := newRecorder(summary)
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, o.logger)

	podcasts, err := o.deps.Roster()
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	summary.Podcasts = podcasts.Len()
	if err := o.store.UpsertPodcasts(ctx, podcasts.Podcasts()); err != nil {
		return nil, fmt.Errorf("refresh podcasts: %w", err)
	}

	logger.Info("run started",
		logging.Int("podcasts", podcasts.Len()),
		logging.Duration("window", opts.Window),
		logging.Int("workers", opts.Workers),
		logging.Int("max_episodes", opts.MaxEpisodes),
		logging.Bool("fetch", opts.Fetch),
		logging.Bool("analyze", opts.Analyze),
	)

	if opts.Fetch {
		rec.setState(StateFetching)
		o.fetchAll(ctx, podcasts, opts, rec)
	}
	if opts.Analyze && ctx.Err() == nil {
		if err := o.analyzePending(ctx, podcasts, opts, rec); err != nil {
			return nil, err
		}
	}

	rec.finish(o.deps.Clock(), ctx.Err() != nil)
	o.logSummary(logger, summary)
	o.publish(ctx, logger, summary)
	return summary, nil
}

func (o *Orchestrator) fetchAll(ctx context.Context, podcasts *roster.Roster, opts RunOptions, rec *recorder) {
	var group errgroup.Group
	group.SetLimit(opts.Workers)
	for _, podcast := range podcasts.Podcasts() {
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			o.fetchPodcast(ctx, podcast, opts.Window, rec)
			return nil
		})
	}
	_ = group.Wait()
}

func (o *Orchestrator) fetchPodcast(ctx context.Context, podcast roster.Podcast, window time.Duration, rec *recorder) {
	ctx = services.WithStage(services.WithPodcast(ctx, podcast.Name), string(StateFetching))
	logger := logging.WithContext(ctx, o.logger)

	feed, err := o.deps.Feeds.Fetch(ctx, podcast, window)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		rec.feedFailed(podcast.Name, err)
		logging.WarnWithContext(logger, "feed fetch failed", string(services.Classify(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the feed URL or try again later"),
			logging.String(logging.FieldImpact, "episodes from this podcast are skipped this run"),
		)
		return
	}

	discovered, created := 0, 0
	for candidate := range feed.Candidates() {
		discovered++
		isNew, err := o.store.UpsertEpisode(ctx, store.Episode{
			ID:          candidate.ID,
			Podcast:     candidate.Podcast,
			Lean:        candidate.Lean,
			Title:       candidate.Title,
			PublishedAt: candidate.PublishedAt,
			Description: candidate.Description,
			Link:        candidate.Link,
			GUID:        candidate.GUID,
			AudioURL:    candidate.AudioURL,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			rec.feedFailed(podcast.Name, err)
			logging.WarnWithContext(logger, "episode insert failed", string(services.Classify(err)),
				logging.String(logging.FieldEpisodeID, candidate.ID),
				logging.Error(err),
			)
			return
		}
		if isNew {
			created++
		}
	}
	rec.feedFetched(discovered, created)
	logger.Debug("feed fetched",
		logging.String("feed_title", feed.Title()),
		logging.Int("items", feed.Items()),
		logging.Int("discovered", discovered),
		logging.Int("new", created),
		logging.Int("outside_window", feed.OutsideWindow()),
		logging.Int("malformed_items", feed.Skipped()),
	)
}

// analyzePending runs resolve and analyze over pending episodes, one lane per
// podcast so each podcast's episodes are handled in order.
func (o *Orchestrator) analyzePending(ctx context.Context, podcasts *roster.Roster, opts RunOptions, rec *recorder) error {
	rec.setState(StateResolving)
	pending, err := o.store.PendingEpisodes(ctx, store.PendingQuery{
		Since:         o.deps.Clock().Add(-opts.Window),
		Limit:         opts.MaxEpisodes,
		IncludeFailed: opts.RetryFailed,
		Reanalyze:     opts.Reanalyze,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("list pending episodes: %w", err)
	}
	rec.mu.Lock()
	rec.summary.Queued = len(pending)
	rec.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	var (
		order []string
		lanes = make(map[string][]store.Episode)
	)
	for _, ep := range pending {
		if _, ok := lanes[ep.Podcast]; !ok {
			order = append(order, ep.Podcast)
		}
		lanes[ep.Podcast] = append(lanes[ep.Podcast], ep)
	}

	rec.setState(StateAnalyzing)
	var group errgroup.Group
	group.SetLimit(opts.Workers)
	for _, name := range order {
		podcast, ok := podcasts.Lookup(name)
		if !ok {
			podcast = roster.Podcast{Name: name, Lean: lanes[name][0].Lean}
		}
		episodes := lanes[name]
		group.Go(func() error {
			for _, ep := range episodes {
				if ctx.Err() != nil {
					return nil
				}
				o.processEpisode(ctx, podcast, ep, opts, rec)
			}
			return nil
		})
	}
	_ = group.Wait()
	return nil
}

func (o *Orchestrator) processEpisode(ctx context.Context, podcast roster.Podcast, ep store.Episode, opts RunOptions, rec *recorder) {
	ctx = services.WithEpisodeID(services.WithPodcast(ctx, ep.Podcast), ep.ID)
	logger := logging.WithContext(services.WithStage(ctx, string(StateResolving)), o.logger)

	release, ok, err := o.deps.Guard.TryAcquire(ep.ID)
	if err != nil {
		rec.episodeFailed(ep.ID, ep.Podcast, err)
		logging.WarnWithContext(logger, "episode lock failed", "episode_lock",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check lock_dir permissions"),
		)
		return
	}
	if !ok {
		rec.inFlight()
		logger.Info("episode already in flight, skipping")
		return
	}
	defer release()

	if !opts.Reanalyze {
		done, err := o.store.HasAnalysis(ctx, ep.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			rec.episodeFailed(ep.ID, ep.Podcast, err)
			logging.WarnWithContext(logger, "analysis lookup failed", string(services.Classify(err)), logging.Error(err))
			return
		}
		if done {
			rec.alreadyAnalyzed()
			logger.Debug("episode analyzed by another run, skipping")
			return
		}
	}

	resolved, err := o.deps.Resolver.Resolve(ctx, transcript.Request{
		EpisodeID:   ep.ID,
		Podcast:     ep.Podcast,
		Title:       ep.Title,
		PublishedAt: ep.PublishedAt,
		Description: ep.Description,
		ChannelID:   podcast.ChannelID,
	})
	if err != nil {
		// Resolver errors mean the run was cancelled; the episode stays pending.
		return
	}

	if resolved.Kind == transcript.KindNone || resolved.WordCount < o.cfg.Analysis.MinWords {
		reason := skipReason(resolved, o.cfg.Analysis.MinWords)
		if err := o.store.MarkSkipped(ctx, ep.ID, reason, resolved.Kind); err != nil {
			if ctx.Err() != nil {
				return
			}
			rec.episodeFailed(ep.ID, ep.Podcast, err)
			logging.WarnWithContext(logger, "could not record skipped episode", string(services.Classify(err)), logging.Error(err))
			return
		}
		rec.skipped()
		logger.Info("episode skipped",
			logging.String("reason", reason),
			logging.String(logging.FieldSourceKind, string(resolved.Kind)),
			logging.Int("words", resolved.WordCount),
		)
		return
	}

	logger = logging.WithContext(services.WithStage(ctx, string(StateAnalyzing)), o.logger)
	result, err := o.deps.Analyzer.Analyze(ctx, analysis.Input{
		EpisodeID:   ep.ID,
		Podcast:     ep.Podcast,
		Host:        podcast.Host,
		Lean:        string(ep.Lean),
		Title:       ep.Title,
		PublishedAt: ep.PublishedAt,
		Body:        resolved.Body,
		SourceKind:  resolved.Kind,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.failEpisode(ctx, logger, ep, resolved.Kind, err, rec)
		return
	}

	if err := o.saveAnalysis(ctx, logger, ep.ID, *result); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.failEpisode(ctx, logger, ep, resolved.Kind, err, rec)
		return
	}

	highThreat := ""
	if result.ThreatLevel == analysis.ThreatHigh {
		highThreat = ep.Podcast + ": " + ep.Title
	}
	rec.analyzed(result.SourceKind, highThreat)
	logger.Info("episode analyzed",
		logging.String(logging.FieldSourceKind, string(result.SourceKind)),
		logging.String("threat_level", string(result.ThreatLevel)),
		logging.Bool("truncated", result.Truncated),
	)
}

// saveAnalysis retries a conflicting write once before giving up.
func (o *Orchestrator) saveAnalysis(ctx context.Context, logger *slog.Logger, episodeID string, result analysis.Analysis) error {
	err := o.store.UpsertAnalysis(ctx, episodeID, result)
	if !errors.Is(err, services.ErrStoreWriteConflict) {
		return err
	}
	logging.WarnWithContext(logger, "analysis write conflict, retrying", string(services.CategoryStoreWriteConflict),
		logging.Error(err),
		logging.String(logging.FieldImpact, "write retried once"),
	)
	return o.store.UpsertAnalysis(ctx, episodeID, result)
}

func (o *Orchestrator) failEpisode(ctx context.Context, logger *slog.Logger, ep store.Episode, kind transcript.SourceKind, cause error, rec *recorder) {
	category := services.Classify(cause)
	rec.episodeFailed(ep.ID, ep.Podcast, cause)
	logging.WarnWithContext(logger, "episode analysis failed", string(category),
		logging.String(logging.FieldCategory, string(category)),
		logging.Error(cause),
		logging.String(logging.FieldImpact, "episode marked analysis_failed; retry with --retry-failed"),
	)
	if err := o.store.MarkFailed(ctx, ep.ID, string(category), kind); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(logger, "could not record episode failure", string(services.Classify(err)), logging.Error(err))
	}
}

func skipReason(result transcript.Result, minWords int) string {
	if result.Kind == transcript.KindNone {
		if reason := strings.TrimSpace(result.Reason); reason != "" {
			return "no text: " + reason
		}
		return "no text"
	}
	return fmt.Sprintf("%d words below minimum %d", result.WordCount, minWords)
}

func (o *Orchestrator) logSummary(logger *slog.Logger, s *Summary) {
	attrs := []logging.Attr{
		logging.Int("feeds_fetched", s.FeedsFetched),
		logging.Int("feed_failures", len(s.FeedFailures)),
		logging.Int("discovered", s.Discovered),
		logging.Int("new", s.New),
		logging.Int("queued", s.Queued),
		logging.Int("analyzed", s.Analyzed),
		logging.Int("skipped", s.Skipped),
		logging.Int("in_flight", s.InFlight),
		logging.Int("already_analyzed", s.AlreadyAnalyzed),
		logging.Int("failed", s.Failed),
		logging.Duration("duration", s.Duration()),
		logging.Bool("partial_failure", s.PartialFailure),
		logging.Bool("canceled", s.Canceled),
	}
	if s.PartialFailure {
		logging.WarnWithContext(logger, "run completed with failures", "run_partial_failure", attrs...)
		return
	}
	logger.Info("run completed", logging.Args(attrs...)...)
}
