package repository

import (
	"context"
	"fmt"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	pkgkafka "ExtremeScan/pkg/kafka"
)

// publisher is the part of pkg/kafka.Producer the sink uses.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

var _ publisher = (*pkgkafka.Producer)(nil)

// KafkaSignalSink publishes every new signal to a topic keyed by symbol, so
// consumers see one symbol's signals in order.
type KafkaSignalSink struct {
	producer publisher
	topic    string
}

func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (s *KafkaSignalSink) Name() string { return "kafka" }

func (s *KafkaSignalSink) Deliver(ctx context.Context, sig *models.ExtremePoint) error {
	if err := s.producer.Publish(ctx, s.topic, []byte(sig.Symbol), sig); err != nil {
		return fmt.Errorf("publish signal %s: %w", sig.ID, err)
	}
	return nil
}

var _ domrepo.SignalSink = (*KafkaSignalSink)(nil)
