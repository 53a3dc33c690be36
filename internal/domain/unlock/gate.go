package unlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/pricing"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/domain/user"
	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
)

// RequestReader loads tutoring requests.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tutoring.Request, error)
}

// BalanceReader reads coin balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
}

// AccountReader loads the buyer's account.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Gate decides who may see a request's contact details and sells access.
type Gate struct {
	repo     Repository
	requests RequestReader
	balances BalanceReader
	accounts AccountReader
	now      func() time.Time
}

func NewGate(repo Repository, requests RequestReader, balances BalanceReader, accounts AccountReader) *Gate {
	return &Gate{repo: repo, requests: requests, balances: balances, accounts: accounts, now: time.Now}
}

// WithClock overrides the clock used for pricing.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Reveal loads the request and decides what viewer may see. viewer is
// uuid.Nil for anonymous callers.
func (g *Gate) Reveal(ctx context.Context, viewer uuid.UUID, requestID uuid.UUID) (*Reveal, error) {
	req, err := g.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return g.RevealFor(ctx, viewer, req)
}

// RevealFor is Reveal for an already loaded request.
//
// Anonymous viewers get redacted contact details only. The requester and
// viewers holding an unlock get everything. Anyone else gets redacted
// details plus the current price and their balance.
func (g *Gate) RevealFor(ctx context.Context, viewer uuid.UUID, req *tutoring.Request) (*Reveal, error) {
	if viewer == uuid.Nil {
		return withheldReveal(req), nil
	}
	if req.IsOwner(viewer) {
		r := fullReveal(req)
		r.IsOwner = true
		return r, nil
	}

	unlocked, err := g.repo.HasUnlock(ctx, viewer, req.ID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		r := fullReveal(req)
		r.AlreadyUnlocked = true
		return r, nil
	}

	balance, err := g.balances.GetBalance(ctx, viewer)
	if err != nil && !errors.Is(err, coin.ErrUserNotFound) {
		return nil, err
	}

	quote := pricing.Explain(req, g.now())
	r := withheldReveal(req)
	r.Price = &quote
	r.Balance = &balance
	return r, nil
}

// Unlock charges viewer the current price and reveals the contact details.
// maxCost, when positive, is the price the viewer agreed to; a higher
// current price fails with ErrPriceChanged. Unlocking twice never charges
// twice: the second call returns the contact with AlreadyUnlocked set.
func (g *Gate) Unlock(ctx context.Context, viewer uuid.UUID, requestID uuid.UUID, maxCost int) (*Reveal, error) {
	if viewer == uuid.Nil {
		return nil, ErrAuthRequired
	}

	req, err := g.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.IsOwner(viewer) {
		r := fullReveal(req)
		r.IsOwner = true
		return r, nil
	}

	unlocked, err := g.repo.HasUnlock(ctx, viewer, req.ID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		r := fullReveal(req)
		r.AlreadyUnlocked = true
		return r, nil
	}

	if req.Status == tutoring.StatusClosed {
		return nil, tutoring.ErrRequestClosed
	}

	buyer, err := g.accounts.GetByID(ctx, viewer)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, coin.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: load account: %w", coin.ErrStoreUnavailable, err)
	}
	if buyer.IsBanned {
		return nil, ErrAccountBanned
	}

	quote := pricing.Explain(req, g.now())
	if maxCost > 0 && quote.Cost > maxCost {
		return nil, ErrPriceChanged
	}

	log := logger.FromContext(ctx).With().
		Str("user_id", viewer.String()).
		Str("request_id", req.ID.String()).
		Int("cost", quote.Cost).
		Logger()

	_, balance, err := g.repo.UnlockWithDebit(ctx, viewer, req.ID, quote.Cost)
	switch {
	case err == nil:
		log.Info().Int("balance", balance).Msg("contact unlocked")
		r := fullReveal(req)
		r.CostPaid = quote.Cost
		r.Price = &quote
		r.Balance = &balance
		return r, nil

	case errors.Is(err, ErrAlreadyUnlocked):
		log.Info().Msg("concurrent unlock already paid")
		r := fullReveal(req)
		r.AlreadyUnlocked = true
		return r, nil

	case errors.Is(err, coin.ErrInsufficientBalance):
		current, berr := g.balances.GetBalance(ctx, viewer)
		if berr != nil {
			log.Warn().Err(berr).Msg("failed to read balance after rejected unlock")
		}
		return nil, &InsufficientBalanceError{Required: quote.Cost, Balance: current}

	default:
		log.Error().Err(err).Msg("unlock failed")
		return nil, err
	}
}

// History returns the requests viewer has unlocked, newest first.
func (g *Gate) History(ctx context.Context, viewer uuid.UUID, page coin.Pagination) ([]UnlockedRequest, error) {
	if viewer == uuid.Nil {
		return nil, ErrAuthRequired
	}
	return g.repo.ListByUser(ctx, viewer, page.Normalize())
}
