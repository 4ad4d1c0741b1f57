package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

const paymentEventsTopic = "payment_events"

// Producer publishes payment lifecycle events. A nil *Producer is safe to
// use and drops events, so callers never need to branch on whether Kafka
// is configured.
type Producer struct {
	client *kgo.Client
	logger *logrus.Logger
	source string
}

// NewProducer creates a Kafka producer for payment events.
func NewProducer(brokers []string, source string, logger *logrus.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(source),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.ProducerBatchMaxBytes(1000000),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger,
		source: source,
	}, nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.client.Close()
	return nil
}

func (p *Producer) HealthCheck() error {
	if p == nil {
		return fmt.Errorf("kafka producer not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

// PublishPaymentEvent publishes a single payment event. Events are
// best-effort: failures are logged and never propagate to the payment path.
func (p *Producer) PublishPaymentEvent(event *PaymentEvent) {
	if p == nil || event == nil {
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Source = p.source

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("event_type", event.EventType).
			Warn("Failed to marshal payment event")
		return
	}

	record := &kgo.Record{
		Topic: paymentEventsTopic,
		Key:   []byte(event.WalletAddress),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "source", Value: []byte(event.Source)},
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := p.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"event_id":   event.EventID,
		}).Warn("Failed to produce payment event")
	}
}
