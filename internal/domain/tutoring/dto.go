package tutoring

import (
	"time"

	"github.com/google/uuid"
)

// RequestResponse is the public view of a request, without contact details.
type RequestResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Urgency     Urgency    `json:"urgency"`
	PriceAmount *string    `json:"price_amount,omitempty"`
	Subjects    []string   `json:"subjects"`
	ViewCount   int64      `json:"view_count"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// RequestResponseFromEntity converts a Request to its public DTO.
func RequestResponseFromEntity(r *Request) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Status:      r.Status,
		Urgency:     r.Urgency.Normalize(),
		Subjects:    []string(r.Subjects),
		ViewCount:   r.Views(),
	}
	if resp.Subjects == nil {
		resp.Subjects = []string{}
	}
	if r.PriceAmount.Valid {
		s := r.PriceAmount.Decimal.StringFixed(2)
		resp.PriceAmount = &s
	}
	if r.CreatedAt.Valid {
		t := r.CreatedAt.Time
		resp.CreatedAt = &t
	}
	return resp
}
