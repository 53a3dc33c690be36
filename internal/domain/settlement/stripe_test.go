package settlement

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tutorlink/tutorlink-api/internal/pkg/payment"
)

const stripeSecret = "whsec_settle"

func signedStripe(id, typ, object string) ([]byte, http.Header) {
	payload := []byte(fmt.Sprintf(`{"id":%q,"object":"event","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`, id, typ, object))
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(stripeSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return payload, h
}

func TestSettleCheckoutAndIntentForOnePaymentCreditOnce(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	provider := payment.NewStripeProvider(stripeSecret)

	deliveries := []struct {
		id, typ, object string
	}{
		{"evt_cs", "checkout.session.completed", `{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_1","customer_email":"a@x.com","metadata":{"coins":"100"}}`},
		{"evt_pi", "payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent","status":"succeeded","receipt_email":"a@x.com","metadata":{"coins":"100"}}`},
	}

	var outcomes []Outcome
	for _, d := range deliveries {
		payload, header := signedStripe(d.id, d.typ, d.object)
		ev, err := provider.ParseWebhook(ctx, payload, header)
		if err != nil {
			t.Fatalf("parse %s: %v", d.typ, err)
		}
		res, err := f.svc.Settle(ctx, FromWebhook(ev))
		if err != nil {
			t.Fatalf("settle %s: %v", d.typ, err)
		}
		outcomes = append(outcomes, res.Outcome)
	}

	if outcomes[0] != OutcomeCredited || outcomes[1] != OutcomeDuplicate {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
	if got := f.store.balance(f.user.ID); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
}
