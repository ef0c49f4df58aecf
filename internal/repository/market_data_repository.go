package repository

import (
	"context"
	"database/sql"
	"fmt"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	chpkg "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

var marketDataSchema = []string{
	`CREATE DATABASE IF NOT EXISTS tradepulse`,
	`CREATE TABLE IF NOT EXISTS tradepulse.market_data (
		ts         DateTime64(3),
		symbol     LowCardinality(String),
		price      Float64,
		pct_change Float64,
		volume     Float64,
		source     LowCardinality(String)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
}

// CHMarketDataStore persists raw tick observations. The symbol
// synchronization job reconciles the registry against this table.
type CHMarketDataStore struct {
	db     *sql.DB
	client *chpkg.Client
	logger *applogger.Logger
	source string
}

// NewCHMarketDataStore creates the store and ensures the schema exists.
func NewCHMarketDataStore(client *chpkg.Client, source string, logger *applogger.Logger) (*CHMarketDataStore, error) {
	if err := client.InitSchema(context.Background(), marketDataSchema); err != nil {
		return nil, fmt.Errorf("market data schema: %w", err)
	}
	if source == "" {
		source = "binance"
	}
	return &CHMarketDataStore{db: client.DB(), client: client, logger: logger, source: source}, nil
}

// Store appends one observation.
func (s *CHMarketDataStore) Store(ctx context.Context, u *models.PriceUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tradepulse.market_data (ts, symbol, price, pct_change, volume, source)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Timestamp, u.Symbol, u.Price, u.PercentChange, u.Volume, s.source,
	)
	if err != nil {
		return fmt.Errorf("market data store %s: %w", u.Symbol, err)
	}
	return nil
}

// Observed aggregates raw records per ticker with record counts and
// first/last-seen bounds.
func (s *CHMarketDataStore) Observed(ctx context.Context) ([]drepo.ObservedTicker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, count() AS records, min(ts) AS first_seen, max(ts) AS last_seen
		FROM tradepulse.market_data
		GROUP BY symbol
		ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("market data observed: %w", err)
	}
	defer rows.Close()

	var out []drepo.ObservedTicker
	for rows.Next() {
		var t drepo.ObservedTicker
		if err := rows.Scan(&t.Ticker, &t.Records, &t.FirstSeen, &t.LastSeen); err != nil {
			return nil, fmt.Errorf("observed scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Health checks store connectivity.
func (s *CHMarketDataStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

var _ drepo.MarketDataStore = (*CHMarketDataStore)(nil)
