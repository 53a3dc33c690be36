package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tutorlink/tutorlink-api/internal/config"
	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/pricing"
	"github.com/tutorlink/tutorlink-api/internal/domain/settlement"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/domain/unlock"
	"github.com/tutorlink/tutorlink-api/internal/pkg/jwt"
	"github.com/tutorlink/tutorlink-api/internal/pkg/payment"
)

// testRouter builds the router with handlers whose stores are never reached
// by the requests below.
func testRouter() http.Handler {
	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}}
	return newRouter(cfg, jwt.NewService("test-secret", time.Minute), handlers{
		requests: unlock.NewHandler(unlock.NewGate(nil, nil, nil, nil), tutoring.NewService(nil, nil)),
		coins:    coin.NewHandler(coin.NewService(nil)),
		pricing:  pricing.NewHandler(),
		webhooks: settlement.NewHandler(settlement.NewService(nil, nil, nil), payment.NewRegistry()),
	})
}

func TestRoutes(t *testing.T) {
	router := testRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"balance requires auth", http.MethodGet, "/api/v1/coins/balance", "", http.StatusUnauthorized},
		{"unlock requires auth", http.MethodPost, "/api/v1/requests/6f1c7c52-8d4e-4a43-9a57-0b6a1d1c2a10/unlock", "", http.StatusUnauthorized},
		{"unlock price requires auth", http.MethodGet, "/api/v1/requests/6f1c7c52-8d4e-4a43-9a57-0b6a1d1c2a10/unlock-price", "", http.StatusUnauthorized},
		{"history requires auth", http.MethodGet, "/api/v1/unlocks", "", http.StatusUnauthorized},
		{"unknown webhook provider", http.MethodPost, "/webhooks/paypal", "{}", http.StatusNotFound},
		{"quote", http.MethodPost, "/api/v1/pricing/quote", `{"urgency":"urgent"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestQuoteThroughRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote",
		strings.NewReader(`{"urgency":"urgent","price_amount":"120","subjects":["Physics"]}`))
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)

	var body struct {
		Success bool          `json:"success"`
		Data    pricing.Quote `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 5 * 2.0 * 1.8 * 1.3 = 23.4
	if !body.Success || body.Data.Cost != 23 {
		t.Fatalf("unexpected quote %#v", body)
	}
}
