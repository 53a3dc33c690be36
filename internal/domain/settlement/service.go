package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/user"
	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
	"github.com/tutorlink/tutorlink-api/internal/pkg/payment"
	"github.com/tutorlink/tutorlink-api/internal/pkg/validator"
)

// UserResolver maps a purchaser email to an account.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Notifier is told about committed credits. Failures are logged only.
type Notifier interface {
	CoinsCredited(ctx context.Context, receipt Receipt) error
}

// Service settles payment events into coin balances exactly once.
type Service struct {
	repo     Repository
	users    UserResolver
	notifier Notifier
}

// NewService creates settlement service; notifier may be nil.
func NewService(repo Repository, users UserResolver, notifier Notifier) *Service {
	return &Service{repo: repo, users: users, notifier: notifier}
}

// FromWebhook converts a verified provider event.
func FromWebhook(ev *payment.WebhookEvent) PaymentEvent {
	return PaymentEvent{
		Provider:        ev.Provider,
		ProviderEventID: ev.EventID,
		DeliveryID:      ev.DeliveryID,
		EventType:       ev.EventType,
		UserEmail:       ev.Email,
		Coins:           ev.Coins,
		Status:          ev.Status,
	}
}

// Settle credits the purchaser of event. It is safe to call any number of
// times for the same event: only the first successful call changes the
// balance. Store failures are returned so the provider redelivers.
func (s *Service) Settle(ctx context.Context, event PaymentEvent) (*Result, error) {
	if errs := validator.Validate(event); errs != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, errs)
	}

	log := logger.FromContext(ctx).With().
		Str("provider", event.Provider).
		Str("event_id", event.ProviderEventID).
		Str("delivery_id", event.DeliveryID).
		Int("coins", event.Coins).
		Logger()

	if event.Coins <= 0 {
		log.Warn().Msg("payment event without a positive coin amount discarded")
		return &Result{Outcome: OutcomeDiscarded, Reason: "no coins"}, nil
	}
	if event.Status != "" && event.Status != payment.StatusCompleted {
		log.Info().Str("status", event.Status).Msg("payment event not completed, ignored")
		return &Result{Outcome: OutcomeDiscarded, Reason: "payment not completed"}, nil
	}

	processed, err := s.repo.WasProcessed(ctx, event.Provider, event.ProviderEventID)
	if err != nil {
		return nil, err
	}
	if processed {
		log.Info().Msg("duplicate payment event acknowledged")
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	u, err := s.resolveUser(ctx, event.UserEmail)
	if err != nil {
		if errors.Is(err, ErrUserResolution) {
			log.Error().Err(err).Str("email", event.UserEmail).Msg("payment event dropped: no matching user")
		}
		return nil, err
	}
	log = log.With().Str("user_id", u.ID.String()).Logger()
	// Captured payments are credited even to banned accounts.
	if u.IsBanned {
		log.Warn().Msg("crediting banned account")
	}

	balance, err := s.repo.ApplyCredit(ctx, event, u.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEvent):
			log.Info().Msg("payment event settled by a concurrent delivery")
			return &Result{Outcome: OutcomeDuplicate, UserID: u.ID}, nil
		case errors.Is(err, ErrUserResolution):
			log.Error().Err(err).Msg("payment event dropped: user disappeared")
		default:
			log.Error().Err(err).Msg("payment event settlement failed")
		}
		return nil, err
	}

	log.Info().Int("balance", balance).Msg("coins credited")
	s.notify(ctx, u, event, balance)

	return &Result{Outcome: OutcomeCredited, UserID: u.ID, Coins: event.Coins, Balance: balance}, nil
}

func (s *Service) resolveUser(ctx context.Context, email string) (*user.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: event carries no email", ErrUserResolution)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserResolution, user.NormalizeEmail(email))
		}
		return nil, fmt.Errorf("%w: resolve user: %w", coin.ErrStoreUnavailable, err)
	}
	if u.ID == uuid.Nil {
		return nil, ErrUserResolution
	}
	return u, nil
}

func (s *Service) notify(ctx context.Context, u *user.User, event PaymentEvent, balance int) {
	if s.notifier == nil {
		return
	}
	receipt := Receipt{
		Email:    u.Email,
		Name:     u.DisplayName(),
		Coins:    event.Coins,
		Balance:  balance,
		Provider: event.Provider,
		EventID:  event.ProviderEventID,
	}
	if err := s.notifier.CoinsCredited(ctx, receipt); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to send coin receipt")
	}
}
