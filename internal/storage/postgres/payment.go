package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/domain/payment"
)

const (
	createPaymentSQL = `INSERT INTO payments (order_id, provider_payment_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	setPaymentStatusSQL = `UPDATE payments SET status = $2, updated_at = now()
		WHERE provider_payment_id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := r.pool.QueryRow(ctx, createPaymentSQL,
		p.OrderID, p.ProviderPaymentID, p.Amount, p.Currency, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert payment")
	}
	return nil
}

func (r *PaymentRepository) SetStatus(ctx context.Context, providerPaymentID string, status payment.Status) error {
	tag, err := r.pool.Exec(ctx, setPaymentStatusSQL, providerPaymentID, string(status))
	if err != nil {
		return errors.Wrap(err, "update payment")
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}
