package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaFeed consumes the mirrored event stream from a Kafka topic. It
// satisfies Feed so headless clients can run the same engine against a
// broker instead of the websocket endpoint.
type KafkaFeed struct {
	reader *kafka.Reader
}

func NewKafkaFeed(brokers []string, topic, groupID string) *KafkaFeed {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10mb
		MaxWait:  500 * time.Millisecond,
		// Fresh consumer groups start at the tail: the bootstrap fetch is
		// authoritative for history, the feed only carries deltas.
		StartOffset: kafka.LastOffset,
	})
	return &KafkaFeed{reader: r}
}

// KafkaDialer adapts NewKafkaFeed to the Dialer shape. A reader is cheap
// to rebuild, so the engine's reconnect path just makes a new one.
func KafkaDialer(brokers []string, topic, groupID string) Dialer {
	return func(ctx context.Context) (Feed, error) {
		return NewKafkaFeed(brokers, topic, groupID), nil
	}
}

func (f *KafkaFeed) Read(ctx context.Context) ([]byte, error) {
	msg, err := f.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (f *KafkaFeed) Close() error {
	if err := f.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %v", err)
	}
	return nil
}

// KafkaMirror republishes broadcast events to a Kafka topic. Messages are
// keyed by poll id so per-poll ordering survives partitioning.
type KafkaMirror struct {
	writer *kafka.Writer
}

func NewKafkaMirror(brokers []string, topic string) *KafkaMirror {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}
	return &KafkaMirror{writer: w}
}

func (m *KafkaMirror) Publish(ctx context.Context, key string, frame []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: frame,
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to mirror event to kafka: %v", err)
	}
	return nil
}

func (m *KafkaMirror) Close() error {
	if err := m.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %v", err)
	}
	return nil
}
