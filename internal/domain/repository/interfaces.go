package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// MarketStream is one persistent connection to the exchange streaming
// endpoint. Subscription is fixed at connect time; changing the symbol
// set requires a reconnect.
type MarketStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error)
	// Ping sends a keepalive probe over the open connection.
	Ping() error
	Close() error
	IsConnected() bool
	// SetSymbols replaces the symbol set used by the next Connect.
	SetSymbols(symbols []string)
}

// SymbolStore persists the symbol catalog.
type SymbolStore interface {
	Upsert(ctx context.Context, s *models.Symbol) error
	List(ctx context.Context) ([]*models.Symbol, error)
	Health(ctx context.Context) error
}

// ObservedTicker summarizes raw market-data records for one ticker.
type ObservedTicker struct {
	Ticker    string
	Records   int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// MarketDataStore persists raw price observations and exposes the
// aggregate view the symbol synchronization job reconciles against.
type MarketDataStore interface {
	Store(ctx context.Context, u *models.PriceUpdate) error
	Observed(ctx context.Context) ([]ObservedTicker, error)
	Health(ctx context.Context) error
}

// CandleStore provides read-only access to OHLCV candles.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// Publisher emits accepted price updates onto the tick event bus.
type Publisher interface {
	Publish(ctx context.Context, u *models.PriceUpdate) error
	Close() error
}

// Broadcaster fans a payload out to hub-registered subscribers of one
// group, at most once per connection.
type Broadcaster interface {
	Publish(hub, group string, payload interface{})
}

// Metrics records operational metrics.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordReconnect()
	RecordSignal(source, signalType string)
	RecordBroadcast(hub string)
}
