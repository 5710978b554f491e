package events

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// KafkaPublisher publishes records with a synchronous producer. Records are
// keyed by their Key so events of one order land on one partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewProducerConfig returns the producer settings used for outbox delivery.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_6_0_0
	return cfg
}

// NewKafkaPublisher connects a sync producer to brokers.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, "create producer")
	}
	return &KafkaPublisher{producer: producer}, nil
}

// Publish sends rec and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, rec Record) error {
	msg := &sarama.ProducerMessage{
		Topic: rec.Topic,
		Key:   sarama.StringEncoder(rec.Key),
		Value: sarama.ByteEncoder(rec.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(rec.EventID)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "send %s", rec.EventID)
	}

	zctx.From(ctx).Debug("Event published",
		zap.String("topic", rec.Topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event_id", rec.EventID),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
