package unlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

const (
	uniqueUserRequest = "contact_unlocks_user_request_key"
	fkUser            = "contact_unlocks_user_id_fkey"
	fkRequest         = "contact_unlocks_request_id_fkey"
)

// Repository is the unlock ledger.
type Repository interface {
	HasUnlock(ctx context.Context, userID, requestID uuid.UUID) (bool, error)

	// UnlockWithDebit creates the unlock row and debits cost in a single
	// transaction, returning the new balance. Nothing is written when it
	// fails: ErrAlreadyUnlocked if the row exists, coin.ErrInsufficientBalance
	// if the balance does not cover cost.
	UnlockWithDebit(ctx context.Context, userID, requestID uuid.UUID, cost int) (*ContactUnlock, int, error)

	ListByUser(ctx context.Context, userID uuid.UUID, page coin.Pagination) ([]UnlockedRequest, error)
}

type repository struct {
	db    *sqlx.DB
	coins *coin.Repository
}

// NewRepository creates unlock repository
func NewRepository(db *sqlx.DB, coins *coin.Repository) Repository {
	return &repository{db: db, coins: coins}
}

func (r *repository) HasUnlock(ctx context.Context, userID, requestID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM contact_unlocks WHERE user_id = $1 AND request_id = $2)
	`, userID, requestID)
	if err != nil {
		return false, fmt.Errorf("%w: check unlock: %w", coin.ErrStoreUnavailable, err)
	}
	return exists, nil
}

// The unlock row goes in first: a concurrent attempt for the same pair
// blocks on the unique index and fails once the winner commits, before it
// can touch the balance.
func (r *repository) UnlockWithDebit(ctx context.Context, userID, requestID uuid.UUID, cost int) (*ContactUnlock, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u := &ContactUnlock{ID: uuid.New(), UserID: userID, RequestID: requestID, CostPaid: cost}
	var balance int

	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO contact_unlocks (id, user_id, request_id, cost_paid)
			VALUES ($1, $2, $3, $4)
			RETURNING unlocked_at
		`, u.ID, u.UserID, u.RequestID, u.CostPaid).Scan(&u.UnlockedAt)
		if err != nil {
			switch {
			case database.IsUniqueViolation(err, uniqueUserRequest):
				return ErrAlreadyUnlocked
			case database.IsForeignKeyViolation(err, fkUser):
				return coin.ErrUserNotFound
			case database.IsForeignKeyViolation(err, fkRequest):
				return tutoring.ErrRequestNotFound
			}
			return fmt.Errorf("%w: insert unlock: %w", coin.ErrStoreUnavailable, err)
		}

		balance, err = r.coins.DebitIfSufficientTx(ctx, tx, userID, cost, coin.TxTypeUnlock, coin.TxMeta{
			ReferenceType: "tutoring_request",
			ReferenceID:   requestID.String(),
			Description:   "Unlocked request contact details",
		})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyUnlocked),
			errors.Is(err, coin.ErrInsufficientBalance),
			errors.Is(err, coin.ErrInvalidAmount),
			errors.Is(err, coin.ErrUserNotFound),
			errors.Is(err, tutoring.ErrRequestNotFound),
			errors.Is(err, coin.ErrStoreUnavailable):
			return nil, 0, err
		default:
			return nil, 0, fmt.Errorf("%w: unlock: %w", coin.ErrStoreUnavailable, err)
		}
	}
	return u, balance, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, page coin.Pagination) ([]UnlockedRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	page = page.Normalize()
	items := make([]UnlockedRequest, 0)
	err := r.db.SelectContext(ctx, &items, `
		SELECT cu.request_id, tr.title, cu.cost_paid, cu.unlocked_at,
		       COALESCE(tr.contact_name, '') AS contact_name,
		       COALESCE(tr.contact_email, '') AS contact_email,
		       COALESCE(tr.contact_phone, '') AS contact_phone
		FROM contact_unlocks cu
		JOIN tutoring_requests tr ON tr.id = cu.request_id
		WHERE cu.user_id = $1
		ORDER BY cu.unlocked_at DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return items, nil
		}
		return nil, fmt.Errorf("%w: list unlocks: %w", coin.ErrStoreUnavailable, err)
	}
	return items, nil
}
