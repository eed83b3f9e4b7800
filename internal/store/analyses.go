package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"podwatch/internal/analysis"
	"podwatch/internal/services"
	"podwatch/internal/transcript"
)

const analysisColumns = "a.synopsis, a.key_topics, a.notable_quotes, a.political_attacks, a.narrative_themes, a.messaging_opportunities, a.threat_level, a.threat_rationale, a.source_kind, a.model, a.truncated, a.analyzed_at"

// HasAnalysis reports whether the episode already has an analysis.
func (s *Store) HasAnalysis(ctx context.Context, episodeID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT 1 FROM analyses WHERE episode_id = ?", episodeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has analysis: %w", err)
	}
	return true, nil
}

// UpsertAnalysis replaces or inserts the episode's analysis and marks the
// episode analyzed in the same transaction.
func (s *Store) UpsertAnalysis(ctx context.Context, episodeID string, a analysis.Analysis) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(episodeID) == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert analysis", "episode id is required", nil)
	}
	if !slices.Contains(analysis.ThreatLevels, a.ThreatLevel) {
		return services.Wrap(services.ErrValidation, "store", "upsert analysis", fmt.Sprintf("invalid threat level %q", a.ThreatLevel), nil)
	}
	kind := a.SourceKind
	if kind == "" {
		kind = transcript.KindNone
	}
	if !kind.Valid() {
		return services.Wrap(services.ErrValidation, "store", "upsert analysis", fmt.Sprintf("invalid source kind %q", kind), nil)
	}
	analyzedAt := a.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = nowUTC()
	}

	lists, err := encodeLists(a)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO analyses
    (episode_id, synopsis, key_topics, notable_quotes, political_attacks, narrative_themes,
     messaging_opportunities, threat_level, threat_rationale, source_kind, model, truncated, analyzed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(episode_id) DO UPDATE SET
    synopsis = excluded.synopsis,
    key_topics = excluded.key_topics,
    notable_quotes = excluded.notable_quotes,
    political_attacks = excluded.political_attacks,
    narrative_themes = excluded.narrative_themes,
    messaging_opportunities = excluded.messaging_opportunities,
    threat_level = excluded.threat_level,
    threat_rationale = excluded.threat_rationale,
    source_kind = excluded.source_kind,
    model = excluded.model,
    truncated = excluded.truncated,
    analyzed_at = excluded.analyzed_at`,
			episodeID,
			a.Synopsis,
			lists[0], lists[1], lists[2], lists[3], lists[4],
			string(a.ThreatLevel),
			a.ThreatRationale,
			string(kind),
			a.Model,
			boolToInt(a.Truncated),
			formatTime(analyzedAt),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO analysis_state (episode_id, status, reason, source_kind, attempts, last_attempt_at)
VALUES (?, ?, '', ?, 1, ?)
ON CONFLICT(episode_id) DO UPDATE SET
    status = excluded.status,
    reason = '',
    source_kind = excluded.source_kind,
    attempts = analysis_state.attempts + 1,
    last_attempt_at = excluded.last_attempt_at`,
			episodeID, string(StatusAnalyzed), string(kind), formatTime(analyzedAt),
		)
		return err
	})
	return writeError("upsert analysis", err)
}

// GetAnalysis returns the episode's analysis or nil when none exists.
func (s *Store) GetAnalysis(ctx context.Context, episodeID string) (*analysis.Analysis, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+analysisColumns+" FROM analyses a WHERE a.episode_id = ?", episodeID)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

func scanAnalysis(scanner interface{ Scan(dest ...any) error }) (*analysis.Analysis, error) {
	var (
		synopsis      string
		topics        string
		quotes        string
		attacks       string
		themes        string
		opportunities string
		threat        string
		rationale     sql.NullString
		kind          string
		model         sql.NullString
		truncated     int
		analyzedRaw   string
	)
	if err := scanner.Scan(&synopsis, &topics, &quotes, &attacks, &themes, &opportunities, &threat, &rationale, &kind, &model, &truncated, &analyzedRaw); err != nil {
		return nil, err
	}
	a := &analysis.Analysis{
		Synopsis:        synopsis,
		ThreatLevel:     analysis.ThreatLevel(threat),
		ThreatRationale: rationale.String,
		SourceKind:      transcript.SourceKind(kind),
		Model:           model.String,
		Truncated:       truncated != 0,
		AnalyzedAt:      parseTimeString(analyzedRaw),
	}
	decoders := []struct {
		raw    string
		target any
		field  string
	}{
		{topics, &a.KeyTopics, "key_topics"},
		{quotes, &a.NotableQuotes, "notable_quotes"},
		{attacks, &a.PoliticalAttacks, "political_attacks"},
		{themes, &a.NarrativeThemes, "narrative_themes"},
		{opportunities, &a.MessagingOpportunities, "messaging_opportunities"},
	}
	for _, d := range decoders {
		if err := decodeList(d.raw, d.target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.field, err)
		}
	}
	return a, nil
}

func encodeLists(a analysis.Analysis) ([5]string, error) {
	var out [5]string
	values := []any{
		emptyIfNil(a.KeyTopics),
		emptyIfNil(a.NotableQuotes),
		emptyIfNil(a.PoliticalAttacks),
		emptyIfNil(a.NarrativeThemes),
		emptyIfNil(a.MessagingOpportunities),
	}
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		out[i] = string(data)
	}
	return out, nil
}

func emptyIfNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

func decodeList(raw string, target any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), target)
}
