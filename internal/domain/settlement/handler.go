package settlement

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
	"github.com/tutorlink/tutorlink-api/internal/pkg/payment"
	"github.com/tutorlink/tutorlink-api/internal/pkg/response"
)

const maxWebhookBytes = 1 << 20

// Handler receives payment provider webhooks.
type Handler struct {
	svc       *Service
	providers *payment.Registry
}

func NewHandler(svc *Service, providers *payment.Registry) *Handler {
	return &Handler{svc: svc, providers: providers}
}

// Webhook handles POST /webhooks/{provider}
// @Summary Payment provider webhook
// @Description Verifies a Stripe or Razorpay notification and credits purchased coins exactly once
// @Tags Payment Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "stripe or razorpay"
// @Success 200 {object} response.Response{data=object{status=string}}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /webhooks/{provider} [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "provider")
	log := logger.FromContext(ctx)

	provider, err := h.providers.Get(name)
	if err != nil {
		response.NotFound(w, "unknown payment provider")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		response.BadRequest(w, "failed to read webhook body")
		return
	}

	ev, err := provider.ParseWebhook(ctx, payload, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			log.Warn().Err(err).Str("provider", name).Msg("webhook signature rejected")
			response.Unauthorized(w, "invalid signature")
		case errors.Is(err, payment.ErrUnsupportedEvent):
			log.Debug().Err(err).Str("provider", name).Msg("webhook event ignored")
			response.OK(w, map[string]string{"status": "ignored"})
		default:
			log.Warn().Err(err).Str("provider", name).Msg("malformed webhook payload")
			response.BadRequest(w, "invalid webhook payload")
		}
		return
	}

	result, err := h.svc.Settle(ctx, FromWebhook(ev))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEvent):
			response.BadRequest(w, "invalid payment event")
		case errors.Is(err, ErrUserResolution):
			// Dropped; Settle already logged it.
			response.OK(w, map[string]string{"status": "dropped"})
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"status": string(result.Outcome)})
}

// Routes returns the webhook router, mounted under /webhooks.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider}", h.Webhook)
	return r
}
