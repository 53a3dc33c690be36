package validator

import "testing"

type sample struct {
	Provider string `json:"provider" validate:"required,payment_provider"`
	Email    string `json:"email" validate:"omitempty,email"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
	Urgency  string `json:"urgency" validate:"urgency"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(sample{Provider: "paypal", Email: "nope", Limit: 101, Urgency: "asap"})

	for _, field := range []string{"provider", "email", "limit", "urgency"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %#v", field, errs)
		}
	}
}

func TestValidateAcceptsValidStruct(t *testing.T) {
	if errs := Validate(sample{Provider: "razorpay", Email: "a@x.com", Limit: 20}); errs != nil {
		t.Fatalf("expected no errors, got %#v", errs)
	}
}

func TestUrgencyIgnoresCaseAndSpace(t *testing.T) {
	for _, u := range []string{"Urgent", " WITHIN_A_WEEK ", "Flexible", ""} {
		if errs := Validate(sample{Provider: "stripe", Urgency: u}); errs != nil {
			t.Errorf("%q: expected no errors, got %#v", u, errs)
		}
	}
	if errs := Validate(sample{Provider: "Stripe"}); errs["provider"] == "" {
		t.Fatalf("provider names stay case-sensitive, got %#v", errs)
	}
}
