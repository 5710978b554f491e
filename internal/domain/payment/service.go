package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/yega-app/yega-api/internal/domain/order"
)

// Orders looks up orders owned by a user.
type Orders interface {
	Get(ctx context.Context, userID, orderID string) (*order.Order, error)
}

// Service creates payment intents and applies provider webhooks.
type Service struct {
	orders   Orders
	payments Repository
	provider Provider
	currency string
}

// NewService creates a payment Service charging in currency.
func NewService(orders Orders, payments Repository, provider Provider, currency string) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		provider: provider,
		currency: currency,
	}
}

// CreateIntent starts a payment for an order of userID and returns the
// client secret used to confirm it. The order status is left unchanged.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID string) (string, error) {
	if orderID == "" {
		return "", ErrOrderRequired
	}
	o, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return "", err
	}

	// Minor units.
	amount := o.Total.Shift(2).Round(0)
	if amount.Sign() <= 0 || !amount.IsInteger() {
		return "", ErrInvalidAmount
	}

	intent, err := s.provider.CreateIntent(ctx, amount.IntPart(), s.currency, o.ID)
	if err != nil {
		return "", errors.Wrap(err, "create intent")
	}

	p := &Payment{
		OrderID:           o.ID,
		ProviderPaymentID: intent.ID,
		Amount:            o.Total,
		Currency:          s.currency,
		Status:            StatusPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return "", errors.Wrap(err, "record payment")
	}

	zctx.From(ctx).Info("Payment intent created",
		zap.String("order_id", o.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", amount.IntPart()),
	)
	return intent.ClientSecret, nil
}

// HandleWebhook verifies and applies a provider notification. Unknown event
// types are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		return err
	}

	lg := zctx.From(ctx).With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	var status Status
	switch ev.Type {
	case EventSucceeded:
		status = StatusCompleted
	case EventFailed:
		status = StatusFailed
	default:
		lg.Debug("Unhandled webhook event")
		return nil
	}

	if err := s.payments.SetStatus(ctx, ev.IntentID, status); err != nil {
		return errors.Wrapf(err, "set payment %s to %s", ev.IntentID, status)
	}
	lg.Info("Payment status updated",
		zap.String("intent_id", ev.IntentID),
		zap.String("status", string(status)),
	)
	return nil
}
