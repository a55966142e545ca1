package marketdata

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes updates to a Kafka topic, keyed by instrument so
// per-instrument ordering survives partitioning.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 5 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Publish(ctx context.Context, key, payload []byte) error {
	// WriteMessages retains the slices; the publisher reuses its buffers.
	msg := kafka.Message{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), payload...),
	}
	return s.writer.WriteMessages(ctx, msg)
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
