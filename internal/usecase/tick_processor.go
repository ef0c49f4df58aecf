package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/cache"
)

const latestPriceTTL = time.Minute

// TickProcessor is the pipeline stage behind rate limiting: accepted
// updates are published onto the tick event bus and mirrored into the
// shared cache for other processes. The in-process latest-price table
// stays authoritative; the mirror is best-effort.
type TickProcessor struct {
	pub   drepo.Publisher
	cache cache.Service
}

// NewTickProcessor wraps a publisher as a pipeline processor. cacheSvc
// may be nil.
func NewTickProcessor(pub drepo.Publisher, cacheSvc cache.Service) *TickProcessor {
	return &TickProcessor{pub: pub, cache: cacheSvc}
}

// Process publishes one accepted update.
func (p *TickProcessor) Process(ctx context.Context, u *models.PriceUpdate) error {
	if err := p.pub.Publish(ctx, u); err != nil {
		return fmt.Errorf("publish tick %s: %w", u.Symbol, err)
	}
	if p.cache != nil {
		if b, err := json.Marshal(u); err == nil {
			_ = p.cache.Set(ctx, "price:"+u.Symbol, string(b), latestPriceTTL)
		}
	}
	return nil
}

// Close releases the underlying publisher.
func (p *TickProcessor) Close() error {
	return p.pub.Close()
}
