package pricing

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/pkg/response"
	"github.com/tutorlink/tutorlink-api/internal/pkg/validator"
)

// QuoteRequest describes a draft request to price.
type QuoteRequest struct {
	Urgency     string              `json:"urgency" validate:"urgency"`
	PriceAmount decimal.NullDecimal `json:"price_amount"`
	ViewCount   int64               `json:"view_count" validate:"gte=0"`
	Subjects    []string            `json:"subjects" validate:"max=20,dive,max=100"`
	CreatedAt   *time.Time          `json:"created_at"`
}

func (q QuoteRequest) toRequest() *tutoring.Request {
	r := &tutoring.Request{
		Urgency:     tutoring.Urgency(q.Urgency),
		PriceAmount: q.PriceAmount,
		ViewCount:   sql.NullInt64{Int64: q.ViewCount, Valid: true},
		Subjects:    pq.StringArray(q.Subjects),
	}
	if q.CreatedAt != nil {
		r.CreatedAt = sql.NullTime{Time: *q.CreatedAt, Valid: true}
	}
	return r
}

type Handler struct {
	now func() time.Time
}

func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

// Quote handles POST /pricing/quote
// @Summary Preview unlock price
// @Description Prices a draft request with the same rules used for unlocks
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body QuoteRequest true "Draft request"
// @Success 200 {object} response.Response{data=Quote}
// @Failure 422 {object} response.Response
// @Router /pricing/quote [post]
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	response.OK(w, Explain(req.toRequest(), h.now()))
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/quote", h.Quote)
	return r
}
