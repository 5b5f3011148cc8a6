package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of pgxpool.Pool the repository needs.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const sessionColumns = `id, user_id, start_time, end_time, status, details, observations, created_at, updated_at`

// exclusionViolation is raised by the sessions overlap constraint when two
// blocking sessions race past the FOR UPDATE check.
const exclusionViolation = "23P01"

// foreignKeyViolation is raised when user_id references no user row.
const foreignKeyViolation = "23503"

// PostgresRepository stores sessions in PostgreSQL.
type PostgresRepository struct {
	db db
}

func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("sessions: database required")
	}
	return &PostgresRepository{db: db}
}

// Create checks for blocking overlaps and inserts inside one transaction.
// The overlap SELECT runs FOR UPDATE so concurrent creates serialize on the
// conflicting rows; the schema's exclusion constraint backstops the rest.
func (r *PostgresRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessions: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	overlapQuery := `
		SELECT id FROM sessions
		WHERE status IN ('PENDING', 'CONFIRMED')
		  AND start_time < $2 AND end_time > $1
		LIMIT 1
		FOR UPDATE
	`
	var conflicting string
	err = tx.QueryRow(ctx, overlapQuery, session.StartTime, session.EndTime).Scan(&conflicting)
	if err == nil {
		return nil, ErrSlotUnavailable
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessions: overlap check: %w", err)
	}

	id := session.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := session.Status
	if status == "" {
		status = StatusPending
	}
	insertQuery := `
		INSERT INTO sessions (id, user_id, start_time, end_time, status, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns
	created, err := scanSession(tx.QueryRow(ctx, insertQuery,
		id, session.UserID, session.StartTime, session.EndTime, status, session.Details))
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotUnavailable
		}
		if isPgErr(err, foreignKeyViolation) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("sessions: insert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("sessions: commit create: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: get session: %w", err)
	}
	return session, nil
}

// Claim attaches a patient to an unclaimed pending session. The WHERE clause
// makes the operation atomic; losing a race surfaces as ErrSlotAlreadyTaken.
func (r *PostgresRepository) Claim(ctx context.Context, id, userID, details string) (*Session, error) {
	query := `
		UPDATE sessions
		SET user_id = $2,
		    status = 'CONFIRMED',
		    details = CASE WHEN $3 <> '' THEN $3 ELSE details END,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING' AND user_id IS NULL
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRow(ctx, query, id, userID, details))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessions: claim session: %w", err)
	}
	return nil, r.claimFailure(ctx, id)
}

func (r *PostgresRepository) claimFailure(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sessions: claim existence check: %w", err)
	}
	if !exists {
		return ErrSessionNotFound
	}
	return ErrSlotAlreadyTaken
}

// TransitionStatus moves a session from one status to another. The expected
// current status is part of the WHERE clause, so a concurrent change makes
// the update miss and surfaces as ErrStatusConflict.
func (r *PostgresRepository) TransitionStatus(ctx context.Context, id string, from, to Status, observations *string) (*Session, error) {
	query := `
		UPDATE sessions
		SET status = $3,
		    observations = COALESCE($4, observations),
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRow(ctx, query, id, from, to, observations))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessions: transition session: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("sessions: transition existence check: %w", err)
	}
	if !exists {
		return nil, ErrSessionNotFound
	}
	return nil, ErrStatusConflict
}

// Reschedule moves a session to a new time window inside one transaction,
// running the same FOR UPDATE overlap check Create does with the session's
// own row excluded.
func (r *PostgresRepository) Reschedule(ctx context.Context, id string, start, end time.Time, details *string) (*Session, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessions: begin reschedule: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	overlapQuery := `
		SELECT id FROM sessions
		WHERE id <> $1
		  AND status IN ('PENDING', 'CONFIRMED')
		  AND start_time < $3 AND end_time > $2
		LIMIT 1
		FOR UPDATE
	`
	var conflicting string
	err = tx.QueryRow(ctx, overlapQuery, id, start, end).Scan(&conflicting)
	if err == nil {
		return nil, ErrSlotUnavailable
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessions: reschedule overlap check: %w", err)
	}

	updateQuery := `
		UPDATE sessions
		SET start_time = $2,
		    end_time = $3,
		    details = COALESCE($4, details),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + sessionColumns
	session, err := scanSession(tx.QueryRow(ctx, updateQuery, id, start, end, details))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		if isExclusionViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("sessions: reschedule session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("sessions: commit reschedule: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (*Session, error) {
	query := `DELETE FROM sessions WHERE id = $1 RETURNING ` + sessionColumns
	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: delete session: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY start_time`
	return r.list(ctx, query)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY start_time`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status IN ('PENDING', 'CONFIRMED')
		  AND start_time < $2 AND end_time > $1
		ORDER BY start_time
	`
	return r.list(ctx, query, from, to)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sessions: scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.StartTime, &s.EndTime, &s.Status,
		&s.Details, &s.Observations, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isExclusionViolation(err error) bool {
	return isPgErr(err, exclusionViolation)
}

func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
