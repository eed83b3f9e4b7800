package store

import (
	"time"

	"podwatch/internal/analysis"
	"podwatch/internal/roster"
	"podwatch/internal/transcript"
)

// Status is the analysis lifecycle of an episode.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnalyzed Status = "analyzed"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "analysis_failed"
)

// Episode is an immutable feed item as first sighted.
type Episode struct {
	ID           string
	Podcast      string
	Lean         roster.Lean
	Title        string
	PublishedAt  time.Time
	Description  string
	Link         string
	GUID         string
	AudioURL     string
	DiscoveredAt time.Time
}

// AnalysisState is the bookkeeping row beside an episode.
type AnalysisState struct {
	EpisodeID     string
	Status        Status
	Reason        string
	SourceKind    transcript.SourceKind
	Attempts      int
	LastAttemptAt time.Time
}

// PendingQuery selects episodes awaiting analysis.
type PendingQuery struct {
	Since time.Time
	Limit int
	// IncludeFailed also returns skipped and analysis_failed episodes.
	IncludeFailed bool
	// Reanalyze returns every episode in the window, analyzed or not.
	Reanalyze bool
}

// Range bounds a query by episode publish time. Zero values are open.
type Range struct {
	Since time.Time
	Until time.Time
}

// EpisodeFilter narrows EpisodesByLean.
type EpisodeFilter struct {
	Range
	Lean  roster.Lean
	Limit int
}

// EpisodeListing is an episode with its current analysis status.
type EpisodeListing struct {
	Episode
	Status      Status
	ThreatLevel analysis.ThreatLevel
	SourceKind  transcript.SourceKind
}

// ThreatFilter narrows AnalysesByThreat. An empty Level matches all.
type ThreatFilter struct {
	Range
	Level analysis.ThreatLevel
	Limit int
}

// AnalyzedEpisode pairs an episode with its analysis.
type AnalyzedEpisode struct {
	Episode  Episode
	Analysis analysis.Analysis
}

// TopicCount is an aggregated key topic.
type TopicCount struct {
	Topic string
	Count int
}

// AttackQuery narrows AttackFeed. An empty Lean matches all.
type AttackQuery struct {
	Since time.Time
	Lean  roster.Lean
	Limit int
}

// AttackItem is one episode's political attacks.
type AttackItem struct {
	EpisodeID   string
	Podcast     string
	Lean        roster.Lean
	Title       string
	PublishedAt time.Time
	ThreatLevel analysis.ThreatLevel
	Attacks     []analysis.Attack
}

// OpportunitySource names the analysis field an opportunity came from.
type OpportunitySource string

const (
	FromMessagingOpportunities OpportunitySource = "messaging_opportunities"
	FromNarrativeThemes        OpportunitySource = "narrative_themes"
)

// Opportunity is one messaging opportunity surfaced from an analysis.
type Opportunity struct {
	EpisodeID string
	Podcast   string
	Lean      roster.Lean
	Title     string
	Text      string
	Source    OpportunitySource
}

// Stats summarizes store contents.
type Stats struct {
	Podcasts int
	Episodes int
	Analyzed int
	Pending  int
	Skipped  int
	Failed   int
	ByLean   map[roster.Lean]int
	ByThreat map[analysis.ThreatLevel]int
	BySource map[transcript.SourceKind]int
}

// DayVolume counts episodes published on one UTC day, per lean.
type DayVolume struct {
	Day    string
	Counts map[roster.Lean]int
}

// Total sums the lean counts.
func (d DayVolume) Total() int {
	total := 0
	for _, n := range d.Counts {
		total += n
	}
	return total
}
