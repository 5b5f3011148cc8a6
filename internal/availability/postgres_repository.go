package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores availability windows in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool or tx.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("availability: database handle required")
	}
	return &PostgresRepository{db: db}
}

const windowColumns = "id, is_recurring, day_of_week, start_time, end_time, is_active, created_at, updated_at"

// Create inserts a new window row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateWindowRequest) (*Window, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	query := `
		INSERT INTO availability_windows (id, is_recurring, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING ` + windowColumns
	row := r.db.QueryRow(ctx, query, id, req.IsRecurring, req.DayOfWeek, req.StartTime, req.EndTime)
	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("availability: insert failed: %w", err)
	}
	return w, nil
}

// Update applies a partial update and returns the updated row. The current
// row is loaded first so the merged state can be validated against the same
// invariants Create enforces.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateWindowRequest) (*Window, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := req.merged(current)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	query := `
		UPDATE availability_windows
		SET is_recurring = $2, day_of_week = $3, start_time = $4, end_time = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + windowColumns
	row := r.db.QueryRow(ctx, query, id, next.IsRecurring, next.DayOfWeek, next.StartTime, next.EndTime, isActive)
	w, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("availability: update failed: %w", err)
	}
	return w, nil
}

// Delete removes a window row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("availability: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

// GetByID fetches a single window.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Window, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows WHERE id = $1`
	w, err := scanWindow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("availability: select failed: %w", err)
	}
	return w, nil
}

// ListAll returns every window in admin display order.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM availability_windows
		ORDER BY is_recurring DESC, day_of_week ASC NULLS LAST, start_time ASC`
	return r.list(ctx, query)
}

// ListActiveRecurring returns all active recurring windows.
func (r *PostgresRepository) ListActiveRecurring(ctx context.Context) ([]*Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM availability_windows
		WHERE is_recurring = TRUE AND is_active = TRUE
		ORDER BY start_time ASC`
	return r.list(ctx, query)
}

// ListActiveOneOff returns active one-off windows starting within [from, to).
func (r *PostgresRepository) ListActiveOneOff(ctx context.Context, from, to time.Time) ([]*Window, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM availability_windows
		WHERE is_recurring = FALSE AND is_active = TRUE
		  AND start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC`
	return r.list(ctx, query, from, to)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Window, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("availability: query failed: %w", err)
	}
	defer rows.Close()

	var out []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("availability: scan failed: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	if err := row.Scan(
		&w.ID,
		&w.IsRecurring,
		&w.DayOfWeek,
		&w.StartTime,
		&w.EndTime,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}
