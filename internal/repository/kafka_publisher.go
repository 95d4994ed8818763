package repository

import (
	"context"
	"fmt"

	"dogebot/internal/domain/models"
	pkgkafka "dogebot/pkg/kafka"
)

// KafkaPublisher emits order events to a Kafka topic, keyed by product so one
// product's events stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishEvent(ctx context.Context, ev models.OrderEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.ProductID), ev); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
