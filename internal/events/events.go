// Package events relays order events from the transactional outbox to Kafka.
package events

import (
	"context"
	"time"
)

// Record is a pending outbox row.
type Record struct {
	ID        int64
	EventID   string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox reads pending records and acknowledges published ones.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Publisher delivers a record to the message broker.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}
