package repository

import (
	"context"
	"fmt"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	kafkapkg "TradePulse/pkg/kafka"
)

// tickPayload is the wire shape on the tick topic. Short field names
// match the upstream ticker event for cheap cross-referencing.
type tickPayload struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"c"`
	PctChange float64 `json:"P"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // ms
}

// KafkaPricePublisher emits accepted price updates onto the tick topic,
// keyed by symbol so per-symbol ordering survives partitioning.
type KafkaPricePublisher struct {
	producer *kafkapkg.Producer
	topic    string
}

// NewKafkaPricePublisher wraps a producer for the given topic.
func NewKafkaPricePublisher(producer *kafkapkg.Producer, topic string) *KafkaPricePublisher {
	if topic == "" {
		topic = "market.ticks"
	}
	return &KafkaPricePublisher{producer: producer, topic: topic}
}

// Publish sends one update.
func (p *KafkaPricePublisher) Publish(ctx context.Context, u *models.PriceUpdate) error {
	payload := tickPayload{
		Symbol:    u.Symbol,
		Price:     u.Price,
		PctChange: u.PercentChange,
		Volume:    u.Volume,
		Timestamp: u.Timestamp.UnixMilli(),
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(u.Symbol), payload); err != nil {
		return fmt.Errorf("publish tick %s: %w", u.Symbol, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPricePublisher) Close() error {
	return p.producer.Close()
}

var _ drepo.Publisher = (*KafkaPricePublisher)(nil)
