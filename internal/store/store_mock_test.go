package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"podwatch/internal/analysis"
	"podwatch/internal/roster"
	"podwatch/internal/services"
	"podwatch/internal/transcript"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewWithDB(db), mock
}

func mockEpisode() Episode {
	return Episode{
		ID:          "ep-1",
		Podcast:     "The Daily",
		Lean:        roster.LeanNeutral,
		Title:       "Title",
		PublishedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sampleMockAnalysis() analysis.Analysis {
	return analysis.Analysis{
		Synopsis:    "Synopsis.",
		ThreatLevel: analysis.ThreatLow,
		SourceKind:  transcript.KindRSSDescription,
	}
}

func TestUpsertEpisodeRetriesBusy(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO episodes").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO episodes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analysis_state").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := st.UpsertEpisode(context.Background(), mockEpisode())
	if err != nil {
		t.Fatalf("UpsertEpisode failed: %v", err)
	}
	if !created {
		t.Fatal("expected episode to be created after retry")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertEpisodeExistingSkipsStateRow(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO episodes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err := st.UpsertEpisode(context.Background(), mockEpisode())
	if err != nil {
		t.Fatalf("UpsertEpisode failed: %v", err)
	}
	if created {
		t.Fatal("expected existing episode to report not created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPersistentBusyIsWriteConflict(t *testing.T) {
	st, mock := newMockStore(t)

	for range busyAttempts {
		mock.ExpectExec("INSERT INTO analysis_state").WillReturnError(errors.New("SQLITE_BUSY: database is locked"))
	}

	err := st.MarkSkipped(context.Background(), "ep-1", "too short", transcript.KindNone)
	if !errors.Is(err, services.ErrStoreWriteConflict) {
		t.Fatalf("expected write conflict, got %v", err)
	}
	if services.Classify(err) != services.CategoryStoreWriteConflict {
		t.Fatalf("unexpected category %q", services.Classify(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConstraintFailureIsWriteConflictWithoutRetry(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analysis_state").
		WillReturnError(errors.New("constraint failed: FOREIGN KEY constraint failed (787)"))

	err := st.MarkFailed(context.Background(), "missing", "rate_limited", transcript.KindNone)
	if !errors.Is(err, services.ErrStoreWriteConflict) {
		t.Fatalf("expected write conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertAnalysisRollsBackOnStateFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analyses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analysis_state").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	a := sampleMockAnalysis()
	err := st.UpsertAnalysis(context.Background(), "ep-1", a)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, services.ErrStoreWriteConflict) {
		t.Fatalf("plain I/O errors must not be tagged as conflicts: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetEpisodeQueryErrorIsWrapped(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM episodes").WillReturnError(errors.New("boom"))

	_, err := st.GetEpisode(context.Background(), "ep-1")
	if err == nil || err.Error() != "get episode: boom" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseTimeStringLayouts(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	for _, raw := range []string{
		formatTime(want),
		"2026-03-01T10:30:00Z",
		"2026-03-01 10:30:00",
	} {
		if got := parseTimeString(raw); !got.Equal(want) {
			t.Fatalf("parseTimeString(%q) = %v", raw, got)
		}
	}
	if got := parseTimeString("garbage"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}
