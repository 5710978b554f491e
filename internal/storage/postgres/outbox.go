package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yega-app/yega-api/internal/events"
)

const (
	fetchPendingSQL = `SELECT id, event_id, topic, key, payload, created_at
		FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`
	markSentSQL = `UPDATE outbox SET sent_at = now() WHERE id = $1`
)

var _ events.Outbox = (*OutboxRepository)(nil)

// OutboxRepository reads and acknowledges outbox records.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// FetchPending returns up to limit unsent records in insertion order.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]events.Record, error) {
	rows, err := r.pool.Query(ctx, fetchPendingSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "fetch pending")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.Record, error) {
		var rec events.Record
		err := row.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt)
		return rec, err
	})
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, markSentSQL, id); err != nil {
		return errors.Wrapf(err, "mark %d sent", id)
	}
	return nil
}
