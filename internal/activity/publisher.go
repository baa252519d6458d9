// Package activity records who changed which audit. Events are emitted to a
// Kafka topic with fail-open semantics: the trail is operational telemetry,
// so a broker outage never blocks or fails a mutation.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is one recorded mutation of an audit aggregate.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	AuditID   string    `json:"audit_id"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
}

// Publisher emits activity events.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Noop discards events when no broker is configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) {}

// KafkaPublisher produces events asynchronously, keyed by audit id so all
// events of one audit land in the same partition in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "activity event dropped", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.AuditID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("activity event delivery failed",
				"audit_id", event.AuditID,
				"action", event.Action,
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
