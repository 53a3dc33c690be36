package coin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Store is the read side of the balance store used by the wallet endpoints.
type Store interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page Pagination) ([]Transaction, error)
}

// Repository provides coin balance and ledger operations. Every balance
// change is a single conditional UPDATE plus a ledger row written in the
// caller's transaction; balances are never read and written back.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := r.db.GetContext(ctx, &balance, `SELECT coin_balance FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: get balance: %w", ErrStoreUnavailable, err)
	}
	return balance, nil
}

// CreditTx atomically increments the balance within an external transaction
// and returns the new balance. The caller commits or rolls back.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType TxType, meta TxMeta) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int
	err := tx.QueryRowxContext(ctx, `
		UPDATE users
		SET coin_balance = coin_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING coin_balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: credit balance: %w", ErrStoreUnavailable, err)
	}

	if err := r.insertLedger(ctx, tx, userID, amount, balance, txType, meta); err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitIfSufficientTx decrements the balance only when it covers amount.
// It returns ErrInsufficientBalance without touching anything otherwise.
func (r *Repository) DebitIfSufficientTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, txType TxType, meta TxMeta) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int
	err := tx.QueryRowxContext(ctx, `
		UPDATE users
		SET coin_balance = coin_balance - $2, updated_at = NOW()
		WHERE id = $1 AND coin_balance >= $2
		RETURNING coin_balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: debit balance: %w", ErrStoreUnavailable, err)
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
			return 0, fmt.Errorf("%w: check user: %w", ErrStoreUnavailable, err)
		}
		if !exists {
			return 0, ErrUserNotFound
		}
		return 0, ErrInsufficientBalance
	}

	if err := r.insertLedger(ctx, tx, userID, -amount, balance, txType, meta); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, page Pagination) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	page = page.Normalize()
	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, amount_delta, balance_after, tx_type, reference_type, reference_id, description, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", ErrStoreUnavailable, err)
	}
	return transactions, nil
}

func (r *Repository) insertLedger(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta, balanceAfter int, txType TxType, meta TxMeta) error {
	if !txType.IsValid() {
		return fmt.Errorf("%w: unknown tx type %q", ErrStoreUnavailable, txType)
	}
	if strings.TrimSpace(meta.Description) == "" {
		meta.Description = "coin balance adjustment"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO coin_transactions (
			id, user_id, amount_delta, balance_after, tx_type, reference_type, reference_id, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), userID, delta, balanceAfter, txType, nullable(meta.ReferenceType), nullable(meta.ReferenceID), meta.Description)
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
