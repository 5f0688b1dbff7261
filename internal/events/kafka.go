package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"carelink/internal/platform/config"
)

// KafkaPublisher produces events to the configured topic. Emit is
// fire-and-forget: produce failures are logged, never returned, so a broker
// outage cannot fail the business operation that triggered the event.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects a producer. Returns nil when no brokers are
// configured (event bus disabled).
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Emit serializes and produces the event, keyed by org so per-org ordering
// holds within a partition.
func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.OrgID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("event produce failed",
				"event_type", string(event.Type),
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes outstanding produces and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// Worker consumes the event topic and hands each event to the notification
// fan-out handler. Handler errors are logged and the offset is still
// committed: notifications are best-effort and redelivery would only add
// duplicates.
type Worker struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// NewWorker joins the consumer group. Returns nil when no brokers are
// configured.
func NewWorker(cfg config.KafkaConfig, handler Handler, logger *slog.Logger) (*Worker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.GroupID),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return &Worker{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	defer w.client.Close()
	for {
		fetches := w.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fetchErr := range errs {
				w.logger.Error("event fetch failed", "topic", fetchErr.Topic, "error", fetchErr.Err)
			}
			continue
		}
		fetches.EachRecord(func(record *kgo.Record) {
			var event Event
			if err := json.Unmarshal(record.Value, &event); err != nil {
				w.logger.Error("event unmarshal failed", "error", err)
				return
			}
			if err := w.handler(ctx, event); err != nil {
				w.logger.Error("event handling failed",
					"event_type", string(event.Type),
					"error", err,
				)
			}
		})
	}
}
