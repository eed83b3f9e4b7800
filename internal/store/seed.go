package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"podwatch/internal/services"
)

// Seed runs a SQL script against an empty store. A store that already holds
// episodes is left untouched. It reports whether the script ran and the
// episode count afterwards.
func (s *Store) Seed(ctx context.Context, script string) (bool, int, error) {
	ctx = ensureContext(ctx)
	var existing int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes").Scan(&existing); err != nil {
		return false, 0, fmt.Errorf("count episodes: %w", err)
	}
	if existing > 0 {
		return false, existing, nil
	}
	if strings.TrimSpace(script) == "" {
		return false, 0, services.Wrap(services.ErrValidation, "store", "seed", "seed script is empty", nil)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, script)
		return err
	})
	if err != nil {
		return false, 0, writeError("seed", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes").Scan(&count); err != nil {
		return true, 0, fmt.Errorf("count episodes: %w", err)
	}
	return true, count, nil
}
