package unlock

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/middleware"
	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
	"github.com/tutorlink/tutorlink-api/internal/pkg/response"
	"github.com/tutorlink/tutorlink-api/internal/pkg/validator"
)

// Handler serves request details and contact unlocks.
type Handler struct {
	gate     *Gate
	requests *tutoring.Service
}

func NewHandler(gate *Gate, requests *tutoring.Service) *Handler {
	return &Handler{gate: gate, requests: requests}
}

// UnlockRequest is the optional body of POST /requests/{id}/unlock.
type UnlockRequest struct {
	MaxCost int `json:"max_cost" validate:"gte=0"`
}

// RequestDetailResponse is a request together with the gate's decision.
type RequestDetailResponse struct {
	Request tutoring.RequestResponse `json:"request"`
	Contact *Reveal                  `json:"contact"`
}

// GetRequest handles GET /requests/{id}
// @Summary Tutoring request detail
// @Description Returns the request and its contact details, redacted unless the viewer owns or unlocked it
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Response{data=RequestDetailResponse}
// @Failure 404 {object} response.Response
// @Router /requests/{id} [get]
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	viewer := middleware.GetUserID(r.Context())

	req, err := h.requests.View(r.Context(), id, viewer, viewerKey(r, viewer))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reveal, err := h.gate.RevealFor(r.Context(), viewer, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, RequestDetailResponse{
		Request: tutoring.RequestResponseFromEntity(req),
		Contact: reveal,
	})
}

// UnlockPrice handles GET /requests/{id}/unlock-price
// @Summary Unlock price
// @Description Returns the coin price with its breakdown and the viewer's balance
// @Tags Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Response{data=Reveal}
// @Router /requests/{id}/unlock-price [get]
func (h *Handler) UnlockPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	reveal, err := h.gate.Reveal(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, reveal)
}

// Unlock handles POST /requests/{id}/unlock
// @Summary Unlock contact details
// @Description Debits the current price and reveals the requester's contact details
// @Tags Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body UnlockRequest false "Price the viewer agreed to"
// @Success 200 {object} response.Response{data=Reveal}
// @Failure 402 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /requests/{id}/unlock [post]
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var body UnlockRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &body); err != nil {
			response.BadRequest(w, "invalid JSON body")
			return
		}
	}
	if errs := validator.Validate(body); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	reveal, err := h.gate.Unlock(r.Context(), middleware.GetUserID(r.Context()), id, body.MaxCost)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, reveal)
}

// History handles GET /unlocks
// @Summary Unlocked requests
// @Tags Requests
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Response{data=[]UnlockedRequest}
// @Router /unlocks [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page := coin.Pagination{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}.Normalize()

	items, err := h.gate.History(r.Context(), middleware.GetUserID(r.Context()), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WithMeta(w, items, response.Meta{
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasNext: len(items) == page.Limit,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		response.PaymentRequired(w, "not enough coins to unlock this contact", map[string]string{
			"required": strconv.Itoa(insufficient.Required),
			"balance":  strconv.Itoa(insufficient.Balance),
		})
	case errors.Is(err, coin.ErrInsufficientBalance):
		response.PaymentRequired(w, "not enough coins to unlock this contact", nil)
	case errors.Is(err, tutoring.ErrRequestNotFound):
		response.NotFound(w, "request not found")
	case errors.Is(err, ErrAuthRequired):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, coin.ErrUserNotFound):
		response.Unauthorized(w, "account not found")
	case errors.Is(err, ErrAccountBanned):
		response.Forbidden(w, "Your account has been banned")
	case errors.Is(err, ErrPriceChanged):
		response.Conflict(w, "unlock price changed, reload and try again")
	case errors.Is(err, tutoring.ErrRequestClosed):
		response.Conflict(w, "request is closed")
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg("unlock handler failed")
		response.InternalError(w)
	}
}

// Routes returns the /requests router. Detail is public; pricing and
// unlocking need a signed-in user.
func (h *Handler) Routes(optionalAuth, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(optionalAuth).Get("/{id}", h.GetRequest)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/{id}/unlock-price", h.UnlockPrice)
		r.With(middleware.RequireTutor()).Post("/{id}/unlock", h.Unlock)
	})
	return r
}

// HistoryRoutes returns the /unlocks router.
func (h *Handler) HistoryRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.History)
	return r
}

func requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid request id")
		return uuid.Nil, false
	}
	return id, true
}

func viewerKey(r *http.Request, viewer uuid.UUID) string {
	if viewer != uuid.Nil {
		return "user:" + viewer.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return ""
	}
	return "ip:" + host
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
