package payment

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yega-app/yega-api/internal/domain/order"
)

type mockOrders map[string]*order.Order

func (m mockOrders) Get(_ context.Context, userID, orderID string) (*order.Order, error) {
	o, ok := m[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type mockPaymentRepo struct {
	created  []*Payment
	statuses map[string]Status
}

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	p.ID = "pay-1"
	m.created = append(m.created, p)
	return nil
}

func (m *mockPaymentRepo) SetStatus(_ context.Context, providerID string, status Status) error {
	if _, ok := m.statuses[providerID]; !ok {
		return ErrNotFound
	}
	m.statuses[providerID] = status
	return nil
}

type mockProvider struct {
	amount   int64
	currency string
	event    *Event
	parseErr error
}

func (m *mockProvider) CreateIntent(_ context.Context, amount int64, currency, _ string) (*Intent, error) {
	m.amount = amount
	m.currency = currency
	return &Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (m *mockProvider) ParseEvent(_ []byte, _ string) (*Event, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.event, nil
}

func TestCreateIntent(t *testing.T) {
	orders := mockOrders{
		"o1": {ID: "o1", UserID: "u1", Total: decimal.RequireFromString("25.99"), Status: order.StatusPending},
	}
	repo := &mockPaymentRepo{}
	provider := &mockProvider{}
	svc := NewService(orders, repo, provider, "mxn")

	secret, err := svc.CreateIntent(context.Background(), "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret", secret)
	assert.Equal(t, int64(2599), provider.amount)
	assert.Equal(t, "mxn", provider.currency)

	require.Len(t, repo.created, 1)
	assert.Equal(t, StatusPending, repo.created[0].Status)
	assert.Equal(t, "pi_123", repo.created[0].ProviderPaymentID)
	assert.Equal(t, order.StatusPending, orders["o1"].Status)
}

func TestCreateIntent_Errors(t *testing.T) {
	orders := mockOrders{
		"o1":   {ID: "o1", UserID: "u1", Total: decimal.RequireFromString("10")},
		"zero": {ID: "zero", UserID: "u1", Total: decimal.Zero},
	}
	svc := NewService(orders, &mockPaymentRepo{}, &mockProvider{}, "mxn")

	_, err := svc.CreateIntent(context.Background(), "u2", "o1")
	require.ErrorIs(t, err, order.ErrNotFound)

	_, err = svc.CreateIntent(context.Background(), "u1", "")
	require.ErrorIs(t, err, ErrOrderRequired)

	_, err = svc.CreateIntent(context.Background(), "u1", "zero")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		want    Status
		wantErr error
	}{
		{name: "succeeded", event: &Event{Type: EventSucceeded, IntentID: "pi_1"}, want: StatusCompleted},
		{name: "failed", event: &Event{Type: EventFailed, IntentID: "pi_1"}, want: StatusFailed},
		{name: "ignored", event: &Event{Type: "charge.refunded", IntentID: "pi_1"}, want: StatusPending},
		{name: "unknown intent", event: &Event{Type: EventSucceeded, IntentID: "pi_x"}, want: StatusPending, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockPaymentRepo{statuses: map[string]Status{"pi_1": StatusPending}}
			svc := NewService(mockOrders{}, repo, &mockProvider{event: tt.event}, "mxn")

			err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, repo.statuses["pi_1"])
		})
	}
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	svc := NewService(mockOrders{}, &mockPaymentRepo{}, &mockProvider{parseErr: errors.Wrap(ErrInvalidSignature, "no match")}, "mxn")

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	require.ErrorIs(t, err, ErrInvalidSignature)
}
