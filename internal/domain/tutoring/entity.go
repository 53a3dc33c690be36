package tutoring

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Urgency represents how soon the student needs a tutor (matches request_urgency enum)
type Urgency string

const (
	UrgencyUrgent     Urgency = "urgent"
	UrgencyWithinWeek Urgency = "within_a_week"
	UrgencyFlexible   Urgency = "flexible"
)

// Normalize maps unknown or empty values to UrgencyFlexible.
func (u Urgency) Normalize() Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(string(u)))) {
	case UrgencyUrgent:
		return UrgencyUrgent
	case UrgencyWithinWeek:
		return UrgencyWithinWeek
	default:
		return UrgencyFlexible
	}
}

// Status represents request status
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Request is a tutoring need posted by a student (matches tutoring_requests table).
// Nullable columns stay nullable here; pricing treats a missing value as "no bonus".
type Request struct {
	ID        uuid.UUID `db:"id"`
	StudentID uuid.UUID `db:"student_id"`

	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Status      Status         `db:"status"`

	Urgency     Urgency             `db:"urgency"`
	PriceAmount decimal.NullDecimal `db:"price_amount"`
	Subjects    pq.StringArray      `db:"subjects"`
	ViewCount   sql.NullInt64       `db:"view_count"`
	CreatedAt   sql.NullTime        `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`

	ContactName  sql.NullString `db:"contact_name"`
	ContactEmail sql.NullString `db:"contact_email"`
	ContactPhone sql.NullString `db:"contact_phone"`
}

// Views returns the view count, treating NULL and negative values as zero.
func (r *Request) Views() int64 {
	if !r.ViewCount.Valid || r.ViewCount.Int64 < 0 {
		return 0
	}
	return r.ViewCount.Int64
}

// IsOwner reports whether userID posted the request.
func (r *Request) IsOwner(userID uuid.UUID) bool {
	return userID != uuid.Nil && r.StudentID == userID
}

// Contact holds the requester's contact details.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Contact returns the full, unredacted contact details.
func (r *Request) Contact() Contact {
	return Contact{
		Name:  r.ContactName.String,
		Email: r.ContactEmail.String,
		Phone: r.ContactPhone.String,
	}
}

// Redacted returns contact details safe to show before unlock: the first
// name, a masked email and the last two digits of the phone.
func (c Contact) Redacted() Contact {
	return Contact{
		Name:  firstName(c.Name),
		Email: maskEmail(c.Email),
		Phone: maskPhone(c.Phone),
	}
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:1] + "***" + email[at:]
}

func maskPhone(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return strings.Repeat("*", len(digits)-2) + string(digits[len(digits)-2:])
}
