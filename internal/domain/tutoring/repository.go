package tutoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines read access to tutoring requests. Requests are owned by
// the request-management service; this service only bumps view counters.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates tutoring request repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var req Request
	err := r.db.GetContext(ctx, &req, `
		SELECT id, student_id, title, description, status, urgency, price_amount, subjects,
		       view_count, created_at, updated_at, contact_name, contact_email, contact_phone
		FROM tutoring_requests
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("tutoring repository get: %w", err)
	}
	return &req, nil
}

func (r *repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE tutoring_requests
		SET view_count = COALESCE(view_count, 0) + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("tutoring repository increment views: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("tutoring repository rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRequestNotFound
	}
	return nil
}
