package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for payment operations.
var (
	ErrNotFound         = errors.New("payment not found")
	ErrOrderRequired    = errors.New("order id required")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidAmount    = errors.New("order total is not a valid amount")
)

// Status is the state of a payment at the provider.
type Status string

// Payment statuses.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment records a provider payment intent for an order.
type Payment struct {
	ID                string
	OrderID           string
	ProviderPaymentID string
	Amount            decimal.Decimal
	Currency          string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Intent is a payment intent created at the provider.
type Intent struct {
	ID           string
	ClientSecret string
}

// Webhook event types acted upon.
const (
	EventSucceeded = "payment_intent.succeeded"
	EventFailed    = "payment_intent.payment_failed"
)

// Event is a verified provider webhook notification.
type Event struct {
	ID       string
	Type     string
	IntentID string
}

// Provider is a payment processor.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency, orderID string) (*Intent, error)
	// ParseEvent verifies the signature of a webhook payload and decodes it.
	// It returns ErrInvalidSignature when verification fails.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// Repository defines persistence operations for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	// SetStatus updates the payment with the given provider id. It returns
	// ErrNotFound if no such payment exists.
	SetStatus(ctx context.Context, providerPaymentID string, status Status) error
}
