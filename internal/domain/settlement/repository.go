package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// Repository records processed events and applies credits.
type Repository interface {
	WasProcessed(ctx context.Context, provider, eventID string) (bool, error)

	// ApplyCredit marks the event processed and credits the user in one
	// transaction, returning the new balance. It returns ErrDuplicateEvent
	// when the event was recorded concurrently.
	ApplyCredit(ctx context.Context, event PaymentEvent, userID uuid.UUID) (int, error)
}

type repository struct {
	db    *sqlx.DB
	coins *coin.Repository
}

// NewRepository creates settlement repository
func NewRepository(db *sqlx.DB, coins *coin.Repository) Repository {
	return &repository{db: db, coins: coins}
}

func (r *repository) WasProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM processed_payment_events WHERE provider = $1 AND event_id = $2
		)
	`, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("%w: check processed event: %w", coin.ErrStoreUnavailable, err)
	}
	return exists, nil
}

func (r *repository) ApplyCredit(ctx context.Context, event PaymentEvent, userID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.markProcessedTx(ctx, tx, event, userID); err != nil {
			return err
		}

		var err error
		balance, err = r.coins.CreditTx(ctx, tx, userID, event.Coins, coin.TxTypePurchase, coin.TxMeta{
			ReferenceType: "payment_event",
			ReferenceID:   event.Provider + ":" + event.ProviderEventID,
			Description:   fmt.Sprintf("Purchased %d coins via %s", event.Coins, event.Provider),
		})
		return err
	})

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, ErrDuplicateEvent):
		return 0, ErrDuplicateEvent
	case errors.Is(err, coin.ErrUserNotFound):
		return 0, ErrUserResolution
	case errors.Is(err, coin.ErrStoreUnavailable):
		return 0, err
	default:
		return 0, fmt.Errorf("%w: apply credit: %w", coin.ErrStoreUnavailable, err)
	}
}

// markProcessedTx inserts the processed-event row. Zero affected rows means
// another delivery of the same event got there first.
func (r *repository) markProcessedTx(ctx context.Context, tx *sqlx.Tx, event PaymentEvent, userID uuid.UUID) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO processed_payment_events (id, provider, event_id, delivery_id, event_type, user_id, coins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, uuid.New(), event.Provider, event.ProviderEventID, event.DeliveryID, event.EventType, userID, event.Coins)
	if err != nil {
		return fmt.Errorf("%w: mark processed: %w", coin.ErrStoreUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", coin.ErrStoreUnavailable, err)
	}
	if rows == 0 {
		return ErrDuplicateEvent
	}
	return nil
}
