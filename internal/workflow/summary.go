package workflow

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"podwatch/internal/notifications"
	"podwatch/internal/services"
	"podwatch/internal/transcript"
)

// State is the run's position in the fetch → resolve → analyze sequence.
type State string

const (
	StateFetching  State = "fetching"
	StateResolving State = "resolving"
	StateAnalyzing State = "analyzing"
	StateComplete  State = "complete"
)

// FeedFailure records one podcast whose feed could not be used.
type FeedFailure struct {
	Podcast  string
	Category services.Category
	Message  string
}

// EpisodeFailure records one episode that ended the run without an analysis.
type EpisodeFailure struct {
	EpisodeID string
	Podcast   string
	Category  services.Category
	Message   string
}

// Summary is the run-level bookkeeping returned by Run.
type Summary struct {
	RunID          string
	State          State
	PartialFailure bool
	Canceled       bool
	StartedAt      time.Time
	FinishedAt     time.Time
	Window         time.Duration

	Podcasts     int
	FeedsFetched int
	FeedFailures []FeedFailure

	Discovered int
	New        int
	Queued     int
	Analyzed   int
	Skipped    int
	InFlight   int
	// AlreadyAnalyzed counts episodes another run finished between queueing
	// and lock acquisition.
	AlreadyAnalyzed int
	Failed          int

	Failures        map[services.Category]int
	EpisodeFailures []EpisodeFailure
	HighThreat      []string
	BySource        map[transcript.SourceKind]int
}

// Duration reports how long the run took.
func (s *Summary) Duration() time.Duration {
	if s == nil || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Report converts the summary into the notification payload.
func (s *Summary) Report() notifications.RunReport {
	failures := make(map[string]int, len(s.Failures))
	for category, count := range s.Failures {
		failures[string(category)] = count
	}
	return notifications.RunReport{
		RunID:        s.RunID,
		Discovered:   s.Discovered,
		New:          s.New,
		Analyzed:     s.Analyzed,
		Skipped:      s.Skipped,
		Failed:       s.Failed,
		FeedFailures: len(s.FeedFailures),
		Failures:     failures,
		HighThreat:   slices.Clone(s.HighThreat),
		Duration:     s.Duration(),
	}
}

// recorder serializes summary updates from pool workers.
type recorder struct {
	mu      sync.Mutex
	summary *Summary
}

func newRecorder(summary *Summary) *recorder {
	summary.Failures = make(map[services.Category]int)
	summary.BySource = make(map[transcript.SourceKind]int)
	return &recorder{summary: summary}
}

func (r *recorder) setState(state State) {
	r.mu.Lock()
	r.summary.State = state
	r.mu.Unlock()
}

func (r *recorder) feedFetched(discovered, created int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FeedsFetched++
	r.summary.Discovered += discovered
	r.summary.New += created
}

func (r *recorder) feedFailed(podcast string, err error) {
	category := services.Classify(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FeedFailures = append(r.summary.FeedFailures, FeedFailure{
		Podcast:  podcast,
		Category: category,
		Message:  err.Error(),
	})
	r.summary.Failures[category]++
}

func (r *recorder) analyzed(kind transcript.SourceKind, highThreat string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Analyzed++
	r.summary.BySource[kind]++
	if highThreat != "" {
		r.summary.HighThreat = append(r.summary.HighThreat, highThreat)
	}
}

func (r *recorder) skipped() {
	r.mu.Lock()
	r.summary.Skipped++
	r.mu.Unlock()
}

func (r *recorder) inFlight() {
	r.mu.Lock()
	r.summary.InFlight++
	r.mu.Unlock()
}

func (r *recorder) alreadyAnalyzed() {
	r.mu.Lock()
	r.summary.AlreadyAnalyzed++
	r.mu.Unlock()
}

func (r *recorder) episodeFailed(episodeID, podcast string, err error) {
	category := services.Classify(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Failed++
	r.summary.Failures[category]++
	r.summary.EpisodeFailures = append(r.summary.EpisodeFailures, EpisodeFailure{
		EpisodeID: episodeID,
		Podcast:   podcast,
		Category:  category,
		Message:   err.Error(),
	})
}

// finish sorts the worker-ordered slices so summaries are stable.
func (r *recorder) finish(now time.Time, canceled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	slices.SortFunc(s.FeedFailures, func(a, b FeedFailure) int {
		return cmp.Compare(a.Podcast, b.Podcast)
	})
	slices.SortFunc(s.EpisodeFailures, func(a, b EpisodeFailure) int {
		return cmp.Compare(a.EpisodeID, b.EpisodeID)
	})
	slices.Sort(s.HighThreat)
	s.Canceled = canceled
	s.PartialFailure = len(s.FeedFailures) > 0 || s.Failed > 0
	s.State = StateComplete
	s.FinishedAt = now
}

// FailureCategories lists the recorded failure categories in name order.
func (s *Summary) FailureCategories() []services.Category {
	return slices.Sorted(maps.Keys(s.Failures))
}
