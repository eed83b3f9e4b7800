package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"podwatch/internal/analysis"
	"podwatch/internal/roster"
	"podwatch/internal/transcript"
)

const (
	defaultVolumeDays      = 14
	themeFallbackEpisodes  = 20
	defaultOpportunityRows = 50
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// withExtra scans the episode columns followed by extra destinations.
func withExtra(row interface{ Scan(dest ...any) error }, extra ...any) scanFunc {
	return func(dest ...any) error {
		return row.Scan(append(dest, extra...)...)
	}
}

func rangeArgs(r Range) (string, string) {
	return sinceArg(r.Since), untilArg(r.Until)
}

// EpisodesByLean lists episodes for a lean (all leans when empty) inside
// the publish range, newest first.
func (s *Store) EpisodesByLean(ctx context.Context, f EpisodeFilter) ([]EpisodeListing, error) {
	ctx = ensureContext(ctx)
	since, until := rangeArgs(f.Range)
	query := `SELECT ` + episodeColumns + `,
    COALESCE(s.status, 'pending'), COALESCE(a.threat_level, ''), COALESCE(a.source_kind, s.source_kind, '')
FROM episodes e
LEFT JOIN analyses a ON a.episode_id = e.id
LEFT JOIN analysis_state s ON s.episode_id = e.id
WHERE e.published_at >= ? AND e.published_at <= ?`
	args := []any{since, until}
	if f.Lean != "" {
		query += " AND e.lean = ?"
		args = append(args, string(f.Lean))
	}
	query += " ORDER BY e.published_at DESC, e.id LIMIT ?"
	args = append(args, limitArg(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("episodes by lean: %w", err)
	}
	defer rows.Close()

	var out []EpisodeListing
	for rows.Next() {
		var status, threat, kind string
		ep, err := scanEpisode(withExtra(rows, &status, &threat, &kind))
		if err != nil {
			return nil, fmt.Errorf("scan episode listing: %w", err)
		}
		listing := EpisodeListing{
			Episode:     *ep,
			Status:      Status(status),
			ThreatLevel: analysis.ThreatLevel(threat),
			SourceKind:  transcript.SourceKind(kind),
		}
		if threat != "" {
			listing.Status = StatusAnalyzed
		}
		out = append(out, listing)
	}
	return out, rows.Err()
}

// AnalysesByThreat lists analyzed episodes at a threat level (all levels
// when empty) inside the publish range, newest first.
func (s *Store) AnalysesByThreat(ctx context.Context, f ThreatFilter) ([]AnalyzedEpisode, error) {
	ctx = ensureContext(ctx)
	since, until := rangeArgs(f.Range)
	query := `SELECT ` + episodeColumns + `, ` + analysisColumns + `
FROM analyses a
JOIN episodes e ON e.id = a.episode_id
WHERE e.published_at >= ? AND e.published_at <= ?`
	args := []any{since, until}
	if f.Level != "" {
		query += " AND a.threat_level = ?"
		args = append(args, string(f.Level))
	}
	query += " ORDER BY e.published_at DESC, e.id LIMIT ?"
	args = append(args, limitArg(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analyses by threat: %w", err)
	}
	defer rows.Close()

	var out []AnalyzedEpisode
	for rows.Next() {
		var a *analysis.Analysis
		ep, err := scanEpisode(scanFunc(func(epDest ...any) error {
			var innerErr error
			a, innerErr = scanAnalysis(scanFunc(func(anDest ...any) error {
				return rows.Scan(append(epDest, anDest...)...)
			}))
			return innerErr
		}))
		if err != nil {
			return nil, fmt.Errorf("scan analyzed episode: %w", err)
		}
		out = append(out, AnalyzedEpisode{Episode: *ep, Analysis: *a})
	}
	return out, rows.Err()
}

// TopicCounts aggregates case-folded key topics over the publish range,
// most frequent first.
func (s *Store) TopicCounts(ctx context.Context, r Range, limit int) ([]TopicCount, error) {
	ctx = ensureContext(ctx)
	since, until := rangeArgs(r)
	rows, err := s.db.QueryContext(ctx, `SELECT lower(trim(j.value)) AS topic, COUNT(*) AS cnt
FROM analyses a
JOIN episodes e ON e.id = a.episode_id,
    json_each(a.key_topics) AS j
WHERE e.published_at >= ? AND e.published_at <= ?
    AND j.type = 'text' AND trim(j.value) != ''
GROUP BY topic
ORDER BY cnt DESC, topic
LIMIT ?`, since, until, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("topic counts: %w", err)
	}
	defer rows.Close()

	var out []TopicCount
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// AttackFeed returns recent episodes whose analysis lists political attacks.
func (s *Store) AttackFeed(ctx context.Context, q AttackQuery) ([]AttackItem, error) {
	ctx = ensureContext(ctx)
	query := `SELECT e.id, e.podcast_name, e.lean, e.title, e.published_at, a.threat_level, a.political_attacks
FROM analyses a
JOIN episodes e ON e.id = a.episode_id
WHERE e.published_at >= ? AND a.political_attacks != '[]'`
	args := []any{sinceArg(q.Since)}
	if q.Lean != "" {
		query += " AND e.lean = ?"
		args = append(args, string(q.Lean))
	}
	query += " ORDER BY e.published_at DESC, e.id LIMIT ?"
	args = append(args, limitArg(q.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attack feed: %w", err)
	}
	defer rows.Close()

	var out []AttackItem
	for rows.Next() {
		var (
			item         AttackItem
			lean         string
			publishedRaw string
			threat       string
			rawAttacks   string
		)
		if err := rows.Scan(&item.EpisodeID, &item.Podcast, &lean, &item.Title, &publishedRaw, &threat, &rawAttacks); err != nil {
			return nil, fmt.Errorf("scan attack: %w", err)
		}
		if err := json.Unmarshal([]byte(rawAttacks), &item.Attacks); err != nil {
			return nil, fmt.Errorf("decode attacks for %s: %w", item.EpisodeID, err)
		}
		if len(item.Attacks) == 0 {
			continue
		}
		item.Lean = roster.Lean(lean)
		item.PublishedAt = parseTimeString(publishedRaw)
		item.ThreatLevel = analysis.ThreatLevel(threat)
		out = append(out, item)
	}
	return out, rows.Err()
}

// OpportunityFeed flattens recent messaging opportunities. When no analysis
// in the window lists any, narrative themes from left and neutral podcasts
// stand in for them.
func (s *Store) OpportunityFeed(ctx context.Context, since time.Time, limit int) ([]Opportunity, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = defaultOpportunityRows
	}
	out, err := s.opportunities(ctx, FromMessagingOpportunities, since, nil, -1, limit)
	if err != nil || len(out) > 0 {
		return out, err
	}
	leans := []roster.Lean{roster.LeanLeft, roster.LeanNeutral}
	return s.opportunities(ctx, FromNarrativeThemes, since, leans, themeFallbackEpisodes, limit)
}

func (s *Store) opportunities(ctx context.Context, source OpportunitySource, since time.Time, leans []roster.Lean, episodeLimit, limit int) ([]Opportunity, error) {
	column := "a.messaging_opportunities"
	if source == FromNarrativeThemes {
		column = "a.narrative_themes"
	}
	args := []any{sinceArg(since)}
	leanClause := ""
	if len(leans) > 0 {
		leanClause = " AND e.lean IN (" + makePlaceholders(len(leans)) + ")"
		for _, lean := range leans {
			args = append(args, string(lean))
		}
	}
	args = append(args, episodeLimit, limit)

	query := `WITH recent AS (
    SELECT e.id, e.podcast_name, e.lean, e.title, e.published_at, ` + column + ` AS items
    FROM analyses a
    JOIN episodes e ON e.id = a.episode_id
    WHERE e.published_at >= ? AND ` + column + ` != '[]'` + leanClause + `
    ORDER BY e.published_at DESC, e.id
    LIMIT ?
)
SELECT r.id, r.podcast_name, r.lean, r.title, j.value
FROM recent r, json_each(r.items) AS j
WHERE j.type = 'text' AND trim(j.value) != ''
ORDER BY r.published_at DESC, r.id, j.key
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("opportunity feed: %w", err)
	}
	defer rows.Close()

	var out []Opportunity
	for rows.Next() {
		var (
			opp  Opportunity
			lean string
		)
		if err := rows.Scan(&opp.EpisodeID, &opp.Podcast, &lean, &opp.Title, &opp.Text); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		opp.Lean = roster.Lean(lean)
		opp.Text = strings.TrimSpace(opp.Text)
		opp.Source = source
		out = append(out, opp)
	}
	return out, rows.Err()
}

// Stats summarizes store contents.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{
		ByLean:   map[roster.Lean]int{},
		ByThreat: map[analysis.ThreatLevel]int{},
		BySource: map[transcript.SourceKind]int{},
	}
	counts := []struct {
		query  string
		target *int
	}{
		{"SELECT COUNT(*) FROM podcasts", &stats.Podcasts},
		{"SELECT COUNT(*) FROM episodes", &stats.Episodes},
		{"SELECT COUNT(*) FROM analyses", &stats.Analyzed},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.target); err != nil {
			return stats, fmt.Errorf("stats: %w", err)
		}
	}

	statuses, err := s.countBy(ctx, `SELECT COALESCE(s.status, 'pending'), COUNT(*)
FROM episodes e
LEFT JOIN analyses a ON a.episode_id = e.id
LEFT JOIN analysis_state s ON s.episode_id = e.id
WHERE a.episode_id IS NULL
GROUP BY 1`)
	if err != nil {
		return stats, err
	}
	stats.Pending = statuses[string(StatusPending)] + statuses[string(StatusAnalyzed)]
	stats.Skipped = statuses[string(StatusSkipped)]
	stats.Failed = statuses[string(StatusFailed)]

	byLean, err := s.countBy(ctx, "SELECT lean, COUNT(*) FROM episodes GROUP BY lean")
	if err != nil {
		return stats, err
	}
	for k, v := range byLean {
		stats.ByLean[roster.Lean(k)] = v
	}
	byThreat, err := s.countBy(ctx, "SELECT threat_level, COUNT(*) FROM analyses GROUP BY threat_level")
	if err != nil {
		return stats, err
	}
	for k, v := range byThreat {
		stats.ByThreat[analysis.ThreatLevel(k)] = v
	}
	bySource, err := s.countBy(ctx, "SELECT source_kind, COUNT(*) FROM analyses GROUP BY source_kind")
	if err != nil {
		return stats, err
	}
	for k, v := range bySource {
		stats.BySource[transcript.SourceKind(k)] = v
	}
	return stats, nil
}

func (s *Store) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out[key] = count
	}
	return out, rows.Err()
}

// DailyVolume counts episodes per UTC publish day and lean for the last
// days ending at now. Days without episodes are included with zero counts.
func (s *Store) DailyVolume(ctx context.Context, days int, now time.Time) ([]DayVolume, error) {
	ctx = ensureContext(ctx)
	if days <= 0 {
		days = defaultVolumeDays
	}
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	rows, err := s.db.QueryContext(ctx, `SELECT substr(e.published_at, 1, 10) AS day, e.lean, COUNT(*)
FROM episodes e
WHERE e.published_at >= ? AND e.published_at < ?
GROUP BY day, e.lean
ORDER BY day`, formatTime(start), formatTime(end.AddDate(0, 0, 1)))
	if err != nil {
		return nil, fmt.Errorf("daily volume: %w", err)
	}
	defer rows.Close()

	out := make([]DayVolume, 0, days)
	index := make(map[string]int, days)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		index[key] = len(out)
		counts := make(map[roster.Lean]int, len(roster.Leans))
		for _, lean := range roster.Leans {
			counts[lean] = 0
		}
		out = append(out, DayVolume{Day: key, Counts: counts})
	}
	for rows.Next() {
		var (
			day   string
			lean  string
			count int
		)
		if err := rows.Scan(&day, &lean, &count); err != nil {
			return nil, fmt.Errorf("scan daily volume: %w", err)
		}
		if i, ok := index[day]; ok {
			out[i].Counts[roster.Lean(lean)] = count
		}
	}
	return out, rows.Err()
}
