package unlock

import (
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/tutorlink-api/internal/domain/pricing"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
)

// ContactUnlock records that a user paid to see a request's contact details.
// Rows are written once per (user, request) and never changed.
type ContactUnlock struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	RequestID  uuid.UUID `db:"request_id" json:"request_id"`
	CostPaid   int       `db:"cost_paid" json:"cost_paid"`
	UnlockedAt time.Time `db:"unlocked_at" json:"unlocked_at"`
}

// UnlockedRequest is a row of the viewer's unlock history.
type UnlockedRequest struct {
	RequestID    uuid.UUID `db:"request_id" json:"request_id"`
	Title        string    `db:"title" json:"title"`
	CostPaid     int       `db:"cost_paid" json:"cost_paid"`
	UnlockedAt   time.Time `db:"unlocked_at" json:"unlocked_at"`
	ContactName  string    `db:"contact_name" json:"contact_name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	ContactPhone string    `db:"contact_phone" json:"contact_phone"`
}

// Reveal is the gate's decision for one viewer and one request.
type Reveal struct {
	RequestID       uuid.UUID        `json:"request_id"`
	Contact         tutoring.Contact `json:"contact"`
	ContactWithheld bool             `json:"contact_withheld"`
	IsOwner         bool             `json:"is_owner,omitempty"`
	AlreadyUnlocked bool             `json:"already_unlocked,omitempty"`
	CostPaid        int              `json:"cost_paid,omitempty"`
	Price           *pricing.Quote   `json:"price,omitempty"`
	Balance         *int             `json:"balance,omitempty"`
}

func fullReveal(req *tutoring.Request) *Reveal {
	return &Reveal{RequestID: req.ID, Contact: req.Contact()}
}

func withheldReveal(req *tutoring.Request) *Reveal {
	return &Reveal{RequestID: req.ID, Contact: req.Contact().Redacted(), ContactWithheld: true}
}
