package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Provider constants
const (
	ProviderStripe   = "stripe"
	ProviderRazorpay = "razorpay"
)

// Standardized payment statuses
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// MetadataCoinsKey and MetadataEmailKey are the checkout metadata (Stripe)
// and notes (Razorpay) keys the storefront sets when creating a coin order.
const (
	MetadataCoinsKey = "coins"
	MetadataEmailKey = "email"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnknownProvider  = errors.New("unknown payment provider")
)

// Provider verifies and decodes one payment provider's webhooks.
type Provider interface {
	// Name returns the provider identifier (e.g., "stripe", "razorpay")
	Name() string

	// ParseWebhook verifies the signature carried in header and converts the
	// payload into a WebhookEvent. It returns ErrInvalidSignature for forged
	// payloads and ErrUnsupportedEvent for event types that never move coins.
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
}

// WebhookEvent is a standardized webhook event across all providers
type WebhookEvent struct {
	Provider   string // Provider name ("stripe", "razorpay")
	EventID    string // Identifier of the logical payment; stable across redeliveries
	DeliveryID string // Provider's id of this particular notification
	EventType  string // Provider event type (e.g., "checkout.session.completed")
	Email      string // Purchaser email
	Coins      int    // Coins purchased; 0 when missing or unparsable
	Status     string // Standardized status
}

// Registry holds the configured payment providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a payment provider under its own name
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get retrieves a payment provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, exists := r.providers[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return provider, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeStatus converts a provider-specific status to an internal one.
// Unknown statuses are treated as pending so they never credit coins.
func NormalizeStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "paid", "succeeded", "captured", "complete", "completed":
		return StatusCompleted
	case "failed", "canceled", "cancelled", "expired":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}

// ParseCoins reads a coin amount from metadata. Missing, fractional or
// non-numeric values yield 0.
func ParseCoins(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
