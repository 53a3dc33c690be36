package settlement

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is a verified payment confirmation from a provider webhook.
// The same logical payment may be delivered any number of times.
type PaymentEvent struct {
	Provider        string `json:"provider" validate:"required,payment_provider"`
	ProviderEventID string `json:"provider_event_id" validate:"required,max=255"`
	DeliveryID      string `json:"delivery_id" validate:"max=255"`
	EventType       string `json:"event_type" validate:"max=100"`
	UserEmail       string `json:"user_email" validate:"max=255"`
	Coins           int    `json:"coins"`
	Status          string `json:"status"`
}

// Outcome describes what Settle did with an event.
type Outcome string

const (
	OutcomeCredited  Outcome = "credited"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDiscarded Outcome = "discarded"
)

// Result is returned by Settle for every event it accepts.
type Result struct {
	Outcome Outcome   `json:"outcome"`
	UserID  uuid.UUID `json:"-"`
	Coins   int       `json:"coins,omitempty"`
	Balance int       `json:"-"`
	Reason  string    `json:"reason,omitempty"`
}

// ProcessedEvent is a processed_payment_events row.
type ProcessedEvent struct {
	ID          uuid.UUID `db:"id"`
	Provider    string    `db:"provider"`
	EventID     string    `db:"event_id"`
	DeliveryID  string    `db:"delivery_id"`
	EventType   string    `db:"event_type"`
	UserID      uuid.UUID `db:"user_id"`
	Coins       int       `db:"coins"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Receipt is passed to the Notifier after a credit commits.
type Receipt struct {
	Email    string
	Name     string
	Coins    int
	Balance  int
	Provider string
	EventID  string
}
