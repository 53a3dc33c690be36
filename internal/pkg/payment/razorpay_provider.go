package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// OrderFetcher is the part of the Razorpay orders API used to recover order
// notes when a payment carries none. *resources.Order satisfies it.
type OrderFetcher interface {
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProvider handles Razorpay payment webhooks.
type RazorpayProvider struct {
	webhookSecret string
	orders        OrderFetcher
}

// NewRazorpayProvider creates the provider. When keyID is empty no API client
// is created and coins are read from webhook notes only.
func NewRazorpayProvider(keyID, keySecret, webhookSecret string) *RazorpayProvider {
	p := &RazorpayProvider{webhookSecret: webhookSecret}
	if keyID != "" && keySecret != "" {
		p.orders = razorpay.NewClient(keyID, keySecret).Order
	}
	return p
}

// WithOrderFetcher replaces the orders API client.
func (p *RazorpayProvider) WithOrderFetcher(orders OrderFetcher) *RazorpayProvider {
	p.orders = orders
	return p
}

func (p *RazorpayProvider) Name() string {
	return ProviderRazorpay
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type razorpayEntity struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Email   string          `json:"email"`
	Status  string          `json:"status"`
	Notes   json.RawMessage `json:"notes"`
}

func (p *RazorpayProvider) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	signature := header.Get(razorpaySignatureHeader)
	if p.webhookSecret == "" || signature == "" || !utils.VerifyWebhookSignature(string(payload), signature, p.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch hook.Event {
	case "payment.captured", "order.paid":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, hook.Event)
	}

	var payment, order *razorpayEntity
	if hook.Payload.Payment != nil {
		payment = &hook.Payload.Payment.Entity
	}
	if hook.Payload.Order != nil {
		order = &hook.Payload.Order.Entity
	}

	// payment.captured and order.paid are both sent for one checkout; keying
	// on the payment id makes the second one a duplicate.
	out := &WebhookEvent{Provider: ProviderRazorpay, EventType: hook.Event}
	notes := map[string]string{}
	orderID := ""
	if order != nil {
		out.EventID = order.ID
		out.Status = NormalizeStatus(order.Status)
		orderID = order.ID
		mergeNotes(notes, decodeNotes(order.Notes))
	}
	if payment != nil {
		out.EventID = payment.ID
		out.Status = NormalizeStatus(payment.Status)
		out.Email = payment.Email
		if orderID == "" {
			orderID = payment.OrderID
		}
		mergeNotes(notes, decodeNotes(payment.Notes))
	}
	if out.EventID == "" {
		return nil, fmt.Errorf("%w: missing payment entity", ErrMalformedPayload)
	}

	if notes[MetadataCoinsKey] == "" && orderID != "" && p.orders != nil {
		mergeNotes(notes, p.fetchOrderNotes(ctx, orderID))
	}

	out.DeliveryID = out.EventID + ":" + hook.Event
	out.Coins = ParseCoins(notes[MetadataCoinsKey])
	out.Email = firstNonEmpty(notes[MetadataEmailKey], out.Email)
	return out, nil
}

func (p *RazorpayProvider) fetchOrderNotes(ctx context.Context, orderID string) map[string]string {
	order, err := p.orders.Fetch(orderID, nil, nil)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("order_id", orderID).Msg("razorpay: failed to fetch order notes")
		return nil
	}
	raw, err := json.Marshal(order["notes"])
	if err != nil {
		return nil
	}
	return decodeNotes(raw)
}

// decodeNotes accepts the notes object in any of the shapes Razorpay sends:
// a string map, a map with numeric values, or an empty array.
func decodeNotes(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	var values map[string]interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return out
	}
	for k, v := range values {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return out
}

// mergeNotes copies src into dst without overwriting non-empty values.
func mergeNotes(dst, src map[string]string) {
	for k, v := range src {
		if dst[k] == "" {
			dst[k] = v
		}
	}
}
