package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"podwatch/internal/roster"
	"podwatch/internal/services"
	"podwatch/internal/transcript"
)

const episodeColumns = "e.id, e.podcast_name, e.lean, e.title, e.published_at, e.description, e.link, e.guid, e.audio_url, e.discovered_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id           string
		podcast      string
		lean         string
		title        sql.NullString
		publishedRaw string
		description  sql.NullString
		link         sql.NullString
		guid         sql.NullString
		audioURL     sql.NullString
		discovered   string
	)
	if err := scanner.Scan(&id, &podcast, &lean, &title, &publishedRaw, &description, &link, &guid, &audioURL, &discovered); err != nil {
		return nil, err
	}
	return &Episode{
		ID:           id,
		Podcast:      podcast,
		Lean:         roster.Lean(lean),
		Title:        title.String,
		PublishedAt:  parseTimeString(publishedRaw),
		Description:  description.String,
		Link:         link.String,
		GUID:         guid.String,
		AudioURL:     audioURL.String,
		DiscoveredAt: parseTimeString(discovered),
	}, nil
}

// UpsertPodcasts refreshes the podcasts reference table from the roster.
func (s *Store) UpsertPodcasts(ctx context.Context, podcasts []roster.Podcast) error {
	ctx = ensureContext(ctx)
	if len(podcasts) == 0 {
		return nil
	}
	now := formatTime(nowUTC())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range podcasts {
			if _, err := tx.ExecContext(ctx, `INSERT INTO podcasts (name, host, lean, feed_url, channel_id, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
    host = excluded.host,
    lean = excluded.lean,
    feed_url = excluded.feed_url,
    channel_id = excluded.channel_id,
    updated_at = excluded.updated_at`,
				p.Name, p.Host, string(p.Lean), p.FeedURL, p.ChannelID, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return writeError("upsert podcasts", err)
}

// UpsertEpisode inserts the episode when its identifier is unseen and
// reports whether a row was created. A known identifier is a no-op.
func (s *Store) UpsertEpisode(ctx context.Context, ep Episode) (bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(ep.ID) == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "episode id is required", nil)
	}
	if strings.TrimSpace(ep.Podcast) == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "podcast name is required", nil)
	}
	if !ep.Lean.Valid() {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", fmt.Sprintf("invalid lean %q", ep.Lean), nil)
	}
	if ep.PublishedAt.IsZero() {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "publish time is required", nil)
	}
	discovered := ep.DiscoveredAt
	if discovered.IsZero() {
		discovered = nowUTC()
	}

	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO episodes
    (id, podcast_name, lean, title, published_at, description, link, guid, audio_url, discovered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
			ep.ID,
			ep.Podcast,
			string(ep.Lean),
			ep.Title,
			formatTime(ep.PublishedAt),
			ep.Description,
			nullableString(ep.Link),
			nullableString(ep.GUID),
			nullableString(ep.AudioURL),
			formatTime(discovered),
		)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = rows == 1
		if !created {
			return nil
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO analysis_state (episode_id, status, attempts)
VALUES (?, ?, 0)
ON CONFLICT(episode_id) DO NOTHING`, ep.ID, string(StatusPending))
		return err
	})
	if err != nil {
		return false, writeError("upsert episode", err)
	}
	return created, nil
}

// GetEpisode returns the episode or nil when unknown.
func (s *Store) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+episodeColumns+" FROM episodes e WHERE e.id = ?", id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// PendingEpisodes returns episodes published inside the query window that
// still need analysis, newest first.
func (s *Store) PendingEpisodes(ctx context.Context, q PendingQuery) ([]Episode, error) {
	ctx = ensureContext(ctx)
	var (
		clauses = []string{"e.published_at >= ?"}
		args    = []any{sinceArg(q.Since)}
	)
	if !q.Reanalyze {
		statuses := []any{string(StatusPending)}
		if q.IncludeFailed {
			statuses = append(statuses, string(StatusSkipped), string(StatusFailed))
		}
		clauses = append(clauses,
			"a.episode_id IS NULL",
			"(s.status IS NULL OR s.status IN ("+makePlaceholders(len(statuses))+"))",
		)
		args = append(args, statuses...)
	}
	args = append(args, limitArg(q.Limit))

	query := `SELECT ` + episodeColumns + `
FROM episodes e
LEFT JOIN analyses a ON a.episode_id = e.id
LEFT JOIN analysis_state s ON s.episode_id = e.id
WHERE ` + strings.Join(clauses, " AND ") + `
ORDER BY e.published_at DESC, e.id
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending episode: %w", err)
		}
		out = append(out, *ep)
	}
	return out, rows.Err()
}

// MarkSkipped records that the episode had too little text to analyze.
func (s *Store) MarkSkipped(ctx context.Context, episodeID, reason string, kind transcript.SourceKind) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx, `INSERT INTO analysis_state (episode_id, status, reason, source_kind, attempts, last_attempt_at)
VALUES (?, ?, ?, ?, 0, ?)
ON CONFLICT(episode_id) DO UPDATE SET
    status = excluded.status,
    reason = excluded.reason,
    source_kind = excluded.source_kind,
    last_attempt_at = excluded.last_attempt_at`,
		episodeID, string(StatusSkipped), reason, string(kind), formatTime(nowUTC()),
	)
	return writeError("mark skipped", err)
}

// MarkFailed records a failed analysis attempt and bumps the attempt count.
func (s *Store) MarkFailed(ctx context.Context, episodeID, reason string, kind transcript.SourceKind) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx, `INSERT INTO analysis_state (episode_id, status, reason, source_kind, attempts, last_attempt_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT(episode_id) DO UPDATE SET
    status = excluded.status,
    reason = excluded.reason,
    source_kind = excluded.source_kind,
    attempts = analysis_state.attempts + 1,
    last_attempt_at = excluded.last_attempt_at`,
		episodeID, string(StatusFailed), reason, string(kind), formatTime(nowUTC()),
	)
	return writeError("mark failed", err)
}

// GetState returns the analysis state row or nil when none exists.
func (s *Store) GetState(ctx context.Context, episodeID string) (*AnalysisState, error) {
	var (
		status     string
		reason     sql.NullString
		kind       sql.NullString
		attempts   int
		lastRaw    sql.NullString
		resolvedID string
	)
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT episode_id, status, reason, source_kind, attempts, last_attempt_at
FROM analysis_state WHERE episode_id = ?`, episodeID).Scan(&resolvedID, &status, &reason, &kind, &attempts, &lastRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis state: %w", err)
	}
	return &AnalysisState{
		EpisodeID:     resolvedID,
		Status:        Status(status),
		Reason:        reason.String,
		SourceKind:    transcript.SourceKind(kind.String),
		Attempts:      attempts,
		LastAttemptAt: parseTimeString(lastRaw.String),
	}, nil
}

func sinceArg(since time.Time) string {
	if since.IsZero() {
		return ""
	}
	return formatTime(since)
}

func untilArg(until time.Time) string {
	if until.IsZero() {
		return "9999"
	}
	return formatTime(until)
}

func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
