package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	applogger "TradePulse/pkg/logger"
)

// tickMessage mirrors the producer's wire shape on the tick topic.
type tickMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"c"`
	PctChange float64 `json:"P"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // ms
}

// TickPersister is the Kafka handler that lands published ticks in the
// raw market-data store so synchronization always has fresh
// observations.
type TickPersister struct {
	topic  string
	store  drepo.MarketDataStore
	logger *applogger.Logger
}

// NewTickPersister builds the handler for the given topic.
func NewTickPersister(topic string, store drepo.MarketDataStore, logger *applogger.Logger) *TickPersister {
	if topic == "" {
		topic = "market.ticks"
	}
	return &TickPersister{topic: topic, store: store, logger: logger}
}

// Topic names the subscribed topic.
func (p *TickPersister) Topic() string { return p.topic }

// Handle decodes one tick message and stores it. Decode failures are
// terminal (no retry can fix a bad payload); store failures propagate
// so the consumer's retry/DLQ policy applies.
func (p *TickPersister) Handle(ctx context.Context, data []byte) error {
	var m tickMessage
	if err := json.Unmarshal(data, &m); err != nil {
		p.logger.Warn("tick persister: dropping undecodable message",
			applogger.Int("bytes", len(data)), applogger.Error(err))
		return nil
	}
	if m.Symbol == "" || m.Timestamp <= 0 {
		p.logger.Warn("tick persister: dropping incomplete message",
			applogger.String("symbol", m.Symbol))
		return nil
	}
	u := &models.PriceUpdate{
		Symbol:        m.Symbol,
		Price:         m.Price,
		PercentChange: m.PctChange,
		Volume:        m.Volume,
		Timestamp:     time.UnixMilli(m.Timestamp),
	}
	if err := p.store.Store(ctx, u); err != nil {
		return fmt.Errorf("persist tick %s: %w", m.Symbol, err)
	}
	return nil
}
