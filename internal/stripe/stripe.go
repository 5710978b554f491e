// Package stripe adapts the Stripe API to payment.Provider.
package stripe

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/yega-app/yega-api/internal/domain/payment"
)

// Config holds Stripe credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// BackendURL overrides the API endpoint, e.g. for stripe-mock.
	BackendURL string
}

// Provider creates payment intents and verifies webhooks through Stripe.
type Provider struct {
	api           *client.API
	webhookSecret string
}

var _ payment.Provider = (*Provider)(nil)

// New creates a Stripe provider.
func New(cfg Config) *Provider {
	var backends *stripeapi.Backends
	if cfg.BackendURL != "" {
		b := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
			URL:               stripeapi.String(cfg.BackendURL),
			MaxNetworkRetries: stripeapi.Int64(0),
		})
		backends = &stripeapi.Backends{API: b, Connect: b, Uploads: b}
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &Provider{api: api, webhookSecret: cfg.WebhookSecret}
}

// CreateIntent creates a PaymentIntent with automatic payment methods.
func (p *Provider) CreateIntent(ctx context.Context, amount int64, currency, orderID string) (*payment.Intent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(amount),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", orderID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe")
	}
	return &payment.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseEvent verifies the Stripe-Signature header and extracts the payment
// intent the event refers to.
func (p *Provider) ParseEvent(payload []byte, signature string) (*payment.Event, error) {
	if signature == "" || p.webhookSecret == "" {
		return nil, errors.Wrap(payment.ErrInvalidSignature, "missing signature or secret")
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Wrap(payment.ErrInvalidSignature, err.Error())
	}

	out := &payment.Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil && len(ev.Data.Raw) > 0 {
		var pi stripeapi.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, errors.Wrap(err, "decode payment intent")
		}
		out.IntentID = pi.ID
	}
	return out, nil
}
