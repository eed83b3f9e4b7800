package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"podwatch/internal/config"
	"podwatch/internal/services"
)

// Store manages episode persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// SQLite primary result codes; extended codes carry them in the low byte.
const (
	codeBusy       = 5
	codeConstraint = 19
)

const (
	busyAttempts = 5
	busyBackoff  = 10 * time.Millisecond
	busyCeiling  = 200 * time.Millisecond

	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

var connPragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func dataSourceName(file string) string {
	q := url.Values{}
	for _, pragma := range connPragmas {
		q.Add("_pragma", pragma)
	}
	return file + "?" + q.Encode()
}

// Open initializes or connects to the episode database under data_dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	file := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dataSourceName(file))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	st := &Store{db: db, path: file}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// NewWithDB wraps an existing, already-migrated handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path, empty for wrapped handles.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ensureContext(ctx))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// hasCode matches the driver's result code, falling back to the message text
// for errors that lost their type on the way up.
func hasCode(err error, code int, markers ...string) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == code
	}
	msg := err.Error()
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isBusy(err error) bool {
	return hasCode(err, codeBusy, "SQLITE_BUSY", "database is locked")
}

func isConstraint(err error) bool {
	return hasCode(err, codeConstraint, "SQLITE_CONSTRAINT", "constraint failed")
}

// writeError tags busy and constraint failures as write conflicts so callers
// can retry the episode once.
func writeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case isBusy(err), isConstraint(err):
		return services.Wrap(services.ErrStoreWriteConflict, "store", op, "write rejected", err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// withBusyRetry reruns op while SQLite reports the database as locked.
func withBusyRetry(ctx context.Context, op func() error) error {
	wait := busyBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isBusy(err) || attempt == busyAttempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, busyCeiling)
	}
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withBusyRetry(ctx, func() (err error) {
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// inTx runs fn inside a transaction, retrying the whole unit on busy.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
