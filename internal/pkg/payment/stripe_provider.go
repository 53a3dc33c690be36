package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeProvider handles Stripe checkout webhooks.
type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(webhookSecret string) *StripeProvider {
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) Name() string {
	return ProviderStripe
}

func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*WebhookEvent, error) {
	signature := header.Get(stripeSignatureHeader)
	if err := webhook.ValidatePayloadWithTolerance(payload, signature, p.webhookSecret, webhook.DefaultTolerance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if event.Data == nil {
		return nil, ErrMalformedPayload
	}

	out := &WebhookEvent{
		Provider:   ProviderStripe,
		DeliveryID: event.ID,
		EventType:  string(event.Type),
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedPayload, err)
		}
		// A session's payment intent also fires payment_intent.succeeded;
		// both must settle under the same key.
		out.EventID = session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			out.EventID = session.PaymentIntent.ID
		}
		out.Coins = ParseCoins(session.Metadata[MetadataCoinsKey])
		out.Status = NormalizeStatus(string(session.PaymentStatus))
		out.Email = firstNonEmpty(session.Metadata[MetadataEmailKey], session.CustomerEmail)
		if out.Email == "" && session.CustomerDetails != nil {
			out.Email = session.CustomerDetails.Email
		}

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedPayload, err)
		}
		out.EventID = intent.ID
		out.Coins = ParseCoins(intent.Metadata[MetadataCoinsKey])
		out.Status = NormalizeStatus(string(intent.Status))
		out.Email = firstNonEmpty(intent.Metadata[MetadataEmailKey], intent.ReceiptEmail)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.Type)
	}

	if out.EventID == "" {
		out.EventID = event.ID
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
