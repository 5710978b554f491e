package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RelayConfig controls outbox polling.
type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Relay periodically moves pending outbox records to a Publisher.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	interval  time.Duration
	batch     int

	published metric.Int64Counter
	failed    metric.Int64Counter
}

// NewRelay creates a Relay reporting metrics through meters.
func NewRelay(outbox Outbox, publisher Publisher, meters metric.MeterProvider, cfg RelayConfig) (*Relay, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	meter := meters.Meter("github.com/yega-app/yega-api/internal/events")
	published, err := meter.Int64Counter("outbox.published",
		metric.WithDescription("Outbox records delivered to the broker"))
	if err != nil {
		return nil, errors.Wrap(err, "published counter")
	}
	failed, err := meter.Int64Counter("outbox.failed",
		metric.WithDescription("Outbox delivery attempts that failed"))
	if err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}

	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  cfg.Interval,
		batch:     cfg.BatchSize,
		published: published,
		failed:    failed,
	}, nil
}

// Run polls until ctx is canceled. Delivery errors are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	lg := zctx.From(ctx).Named("outbox")
	lg.Info("Relay started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("Relay stopped")
			return nil
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil && ctx.Err() == nil {
				lg.Error("Relay flush failed", zap.Error(err), zap.Int("sent", n))
				continue
			}
			if n > 0 {
				lg.Debug("Relay flushed", zap.Int("sent", n))
			}
		}
	}
}

// Flush publishes one batch of pending records in order and returns how many
// were delivered. It stops at the first failure so that records of one key
// are never reordered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := r.outbox.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, errors.Wrap(err, "fetch pending")
	}

	sent := 0
	for _, rec := range recs {
		attrs := metric.WithAttributes(attribute.String("topic", rec.Topic))
		if err := r.publisher.Publish(ctx, rec); err != nil {
			r.failed.Add(ctx, 1, attrs)
			return sent, errors.Wrapf(err, "publish %d", rec.ID)
		}
		if err := r.outbox.MarkSent(ctx, rec.ID); err != nil {
			return sent, errors.Wrapf(err, "mark %d sent", rec.ID)
		}
		r.published.Add(ctx, 1, attrs)
		sent++
	}
	return sent, nil
}
