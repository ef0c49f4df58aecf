package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	chpkg "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

// symbolSchema keeps one row per (ticker, venue); ReplacingMergeTree on
// updated_at gives upsert semantics, reads use FINAL to collapse
// versions.
var symbolSchema = []string{
	`CREATE DATABASE IF NOT EXISTS tradepulse`,
	`CREATE TABLE IF NOT EXISTS tradepulse.symbols (
		id          String,
		ticker      LowCardinality(String),
		venue       LowCardinality(String),
		base_asset  LowCardinality(String),
		quote_asset LowCardinality(String),
		asset_class LowCardinality(String),
		is_active   UInt8,
		is_tracked  UInt8,
		metadata    String,
		created_at  DateTime64(3),
		updated_at  DateTime64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (ticker, venue)`,
}

// CHSymbolStore persists the symbol catalog in ClickHouse.
type CHSymbolStore struct {
	db     *sql.DB
	client *chpkg.Client
	logger *applogger.Logger
}

// NewCHSymbolStore creates the store and ensures the schema exists.
func NewCHSymbolStore(client *chpkg.Client, logger *applogger.Logger) (*CHSymbolStore, error) {
	if err := client.InitSchema(context.Background(), symbolSchema); err != nil {
		return nil, fmt.Errorf("symbol store schema: %w", err)
	}
	return &CHSymbolStore{db: client.DB(), client: client, logger: logger}, nil
}

// Upsert writes the symbol; the engine collapses older versions of the
// same (ticker, venue) row.
func (s *CHSymbolStore) Upsert(ctx context.Context, sym *models.Symbol) error {
	meta := "{}"
	if len(sym.Metadata) > 0 {
		b, err := json.Marshal(sym.Metadata)
		if err != nil {
			return fmt.Errorf("symbol metadata encode: %w", err)
		}
		meta = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tradepulse.symbols
			(id, ticker, venue, base_asset, quote_asset, asset_class, is_active, is_tracked, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.ID, sym.Ticker, sym.Venue, sym.BaseAsset, sym.QuoteAsset, sym.AssetClass,
		boolToUInt8(sym.IsActive), boolToUInt8(sym.IsTracked), meta, sym.CreatedAt, sym.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("symbol upsert: %w", err)
	}
	return nil
}

// List returns the full catalog, latest version of each row.
func (s *CHSymbolStore) List(ctx context.Context) ([]*models.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, venue, base_asset, quote_asset, asset_class, is_active, is_tracked, metadata, created_at, updated_at
		FROM tradepulse.symbols FINAL
		ORDER BY ticker, venue`)
	if err != nil {
		return nil, fmt.Errorf("symbol list: %w", err)
	}
	defer rows.Close()

	var out []*models.Symbol
	for rows.Next() {
		var (
			sym                models.Symbol
			active, tracked    uint8
			meta               string
			created, updated   time.Time
		)
		if err := rows.Scan(&sym.ID, &sym.Ticker, &sym.Venue, &sym.BaseAsset, &sym.QuoteAsset,
			&sym.AssetClass, &active, &tracked, &meta, &created, &updated); err != nil {
			return nil, fmt.Errorf("symbol scan: %w", err)
		}
		sym.IsActive = active != 0
		sym.IsTracked = tracked != 0
		sym.CreatedAt = created
		sym.UpdatedAt = updated
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &sym.Metadata); err != nil {
				s.logger.Warn("symbol store: unreadable metadata blob",
					applogger.String("ticker", sym.Ticker), applogger.Error(err))
			}
		}
		out = append(out, &sym)
	}
	return out, rows.Err()
}

// Health checks store connectivity.
func (s *CHSymbolStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ drepo.SymbolStore = (*CHSymbolStore)(nil)
