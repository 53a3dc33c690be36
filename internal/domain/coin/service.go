package coin

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes a user's coin wallet.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetBalance returns the current coin balance for a user
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.GetBalance(ctx, userID)
}

// ListTransactions returns paginated ledger history, newest first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page Pagination) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, userID, page.Normalize())
}
