package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds configuration for the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int // 0, 1, or -1 (all)
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes change events to a Kafka topic, keyed by table so
// that the changes of one table stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a synchronous Kafka producer.
func NewKafkaPublisher(config KafkaConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  3,
		Async:        false,
	}

	p := newKafkaPublisher(writer, config.Topic)
	p.logger.Info("kafka publisher initialized", "brokers", config.Brokers, "topic", config.Topic, "required_acks", config.RequiredAcks)
	return p, nil
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "events", "publisher", "kafka"),
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...ChangeEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal change event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Table),
			Value: data,
			Time:  ev.Time,
			Headers: []kafka.Header{
				{Key: "op", Value: []byte(ev.Op)},
				{Key: "table", Value: []byte(ev.Table)},
			},
		})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d events to Kafka topic %s: %w", len(msgs), p.topic, err)
	}
	p.logger.DebugContext(ctx, "events produced", "topic", p.topic, "count", len(msgs), "duration", time.Since(start))
	return nil
}

// Close implements Publisher.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
