package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	chpkg "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

// Candles are materialized from raw ticks into one table with a tf
// column; the aggregating engine folds late ticks into their bucket.
var candleSchema = []string{
	`CREATE DATABASE IF NOT EXISTS tradepulse`,
	`CREATE TABLE IF NOT EXISTS tradepulse.candles (
		bucket DateTime64(3),
		symbol LowCardinality(String),
		tf     LowCardinality(String),
		open   AggregateFunction(argMin, Float64, DateTime64(3)),
		high   SimpleAggregateFunction(max, Float64),
		low    SimpleAggregateFunction(min, Float64),
		close  AggregateFunction(argMax, Float64, DateTime64(3)),
		volume SimpleAggregateFunction(sum, Float64)
	) ENGINE = AggregatingMergeTree
	PARTITION BY toYYYYMM(bucket)
	ORDER BY (symbol, tf, bucket)`,
	`CREATE MATERIALIZED VIEW IF NOT EXISTS tradepulse.candles_1m_mv
	TO tradepulse.candles AS
	SELECT
		toStartOfMinute(ts) AS bucket,
		symbol,
		'1m' AS tf,
		argMinState(price, ts) AS open,
		max(price) AS high,
		min(price) AS low,
		argMaxState(price, ts) AS close,
		sum(volume) AS volume
	FROM tradepulse.market_data
	GROUP BY bucket, symbol`,
}

// CHCandleStore reads OHLCV candles for indicator computation.
type CHCandleStore struct {
	db     *sql.DB
	logger *applogger.Logger
}

// NewCHCandleStore creates the store and ensures the schema exists.
func NewCHCandleStore(client *chpkg.Client, logger *applogger.Logger) (*CHCandleStore, error) {
	if err := client.InitSchema(context.Background(), candleSchema); err != nil {
		return nil, fmt.Errorf("candle store schema: %w", err)
	}
	return &CHCandleStore{db: client.DB(), logger: logger}, nil
}

// GetCandles returns candles in [from, to) at the given timeframe,
// ascending by bucket. Timeframes coarser than 1m are rolled up at
// query time.
func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf drepo.Timeframe) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			toStartOfInterval(bucket, INTERVAL %d second) AS b,
			symbol,
			argMinMerge(open) AS open,
			max(high) AS high,
			min(low) AS low,
			argMaxMerge(close) AS close,
			sum(volume) AS volume
		FROM tradepulse.candles
		WHERE symbol = ? AND tf = '1m' AND bucket >= ? AND bucket < ?
		GROUP BY b, symbol
		ORDER BY b ASC`, int(tf.Duration().Seconds())),
		symbol, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("candles query %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

// GetLatestNCandles returns the most recent n candles ascending by
// bucket.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf drepo.Timeframe) ([]models.Candle, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT * FROM (
			SELECT
				toStartOfInterval(bucket, INTERVAL %d second) AS b,
				symbol,
				argMinMerge(open) AS open,
				max(high) AS high,
				min(low) AS low,
				argMaxMerge(close) AS close,
				sum(volume) AS volume
			FROM tradepulse.candles
			WHERE symbol = ? AND tf = '1m'
			GROUP BY b, symbol
			ORDER BY b DESC
			LIMIT ?
		) ORDER BY b ASC`, int(tf.Duration().Seconds())),
		symbol, n,
	)
	if err != nil {
		return nil, fmt.Errorf("latest candles query %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

func scanCandles(rows *sql.Rows) ([]models.Candle, error) {
	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("candle scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ drepo.CandleStore = (*CHCandleStore)(nil)
