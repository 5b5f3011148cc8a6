package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func sessionRows(mock pgxmock.PgxPoolIface, s *Session) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "user_id", "start_time", "end_time", "status", "details", "observations", "created_at", "updated_at",
	}).AddRow(s.ID, s.UserID, s.StartTime, s.EndTime, s.Status, s.Details, s.Observations, s.CreatedAt, s.UpdatedAt)
}

func storedSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        "s-1",
		StartTime: now.Add(24 * time.Hour),
		EndTime:   now.Add(24*time.Hour + 40*time.Minute),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresCreate_ChecksOverlapInTransaction(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs(stored.StartTime, stored.EndTime).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), (*string)(nil), stored.StartTime, stored.EndTime, StatusPending, "").
		WillReturnRows(sessionRows(mock, stored))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	session, err := repo.Create(context.Background(), &Session{
		StartTime: stored.StartTime,
		EndTime:   stored.EndTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "s-1" || session.Status != StatusPending {
		t.Errorf("unexpected session: %+v", session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_OverlapRollsBack(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs(stored.StartTime, stored.EndTime).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("existing"))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, err := repo.Create(context.Background(), &Session{
		StartTime: stored.StartTime,
		EndTime:   stored.EndTime,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_ExclusionConstraintMapsToUnavailable(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs(stored.StartTime, stored.EndTime).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), (*string)(nil), stored.StartTime, stored.EndTime, StatusPending, "").
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, err := repo.Create(context.Background(), &Session{
		StartTime: stored.StartTime,
		EndTime:   stored.EndTime,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestPostgresCreate_ForeignKeyMapsToPatientNotFound(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()
	ghost := "no-such-user"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs(stored.StartTime, stored.EndTime).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), &ghost, stored.StartTime, stored.EndTime, StatusPending, "").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, err := repo.Create(context.Background(), &Session{
		UserID:    &ghost,
		StartTime: stored.StartTime,
		EndTime:   stored.EndTime,
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPostgresReschedule_ChecksOverlapExcludingSelf(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()
	newStart := stored.StartTime.Add(48 * time.Hour)
	newEnd := newStart.Add(40 * time.Minute)
	moved := *stored
	moved.StartTime = newStart
	moved.EndTime = newEnd

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("s-1", newStart, newEnd).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("s-1", newStart, newEnd, (*string)(nil)).
		WillReturnRows(sessionRows(mock, &moved))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	session, err := repo.Reschedule(context.Background(), "s-1", newStart, newEnd, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.StartTime.Equal(newStart) {
		t.Errorf("expected start %s, got %s", newStart, session.StartTime)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresReschedule_ConflictRollsBack(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM sessions").
		WithArgs("s-1", stored.StartTime, stored.EndTime).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("other"))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, err := repo.Reschedule(context.Background(), "s-1", stored.StartTime, stored.EndTime, nil)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresClaim_Success(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()
	userID := "u-1"
	stored.UserID = &userID
	stored.Status = StatusConfirmed

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("s-1", "u-1", "details").
		WillReturnRows(sessionRows(mock, stored))

	repo := NewPostgresRepository(mock)
	session, err := repo.Claim(context.Background(), "s-1", "u-1", "details")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Status != StatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", session.Status)
	}
}

func TestPostgresClaim_TakenVsMissing(t *testing.T) {
	mock := newMock(t)

	// Conditional update misses; the row exists, so the slot was taken.
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("s-1", "u-1", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("s-1").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewPostgresRepository(mock)
	if _, err := repo.Claim(context.Background(), "s-1", "u-1", ""); !errors.Is(err, ErrSlotAlreadyTaken) {
		t.Errorf("expected ErrSlotAlreadyTaken, got %v", err)
	}

	// Update misses and the row does not exist at all.
	mock.ExpectQuery("UPDATE sessions").
		WithArgs("missing", "u-1", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("missing").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

	if _, err := repo.Claim(context.Background(), "missing", "u-1", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPostgresTransition_ConcurrentChange(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("UPDATE sessions").
		WithArgs("s-1", StatusPending, StatusConfirmed, (*string)(nil)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("s-1").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewPostgresRepository(mock)
	_, err := repo.TransitionStatus(context.Background(), "s-1", StatusPending, StatusConfirmed, nil)
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
}

func TestPostgresDelete_ReturnsDeletedRow(t *testing.T) {
	mock := newMock(t)
	stored := storedSession()

	mock.ExpectQuery("DELETE FROM sessions").
		WithArgs("s-1").
		WillReturnRows(sessionRows(mock, stored))

	repo := NewPostgresRepository(mock)
	session, err := repo.Delete(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "s-1" {
		t.Errorf("expected deleted session back, got %+v", session)
	}
}
