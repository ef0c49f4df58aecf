package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/registry"
	"TradePulse/internal/service/binance"
	applogger "TradePulse/pkg/logger"
)

// ErrSyncRunning rejects a synchronization while another is in flight.
var ErrSyncRunning = fmt.Errorf("symbol sync already running")

var validAssetClasses = map[string]bool{
	"CRYPTO":    true,
	"EQUITY":    true,
	"FOREX":     true,
	"COMMODITY": true,
}

// SyncOptions tune one synchronization run.
type SyncOptions struct {
	AssetClass  string // optional filter; empty means all
	BatchSize   int
	Concurrency int // bounded per-item concurrency within a batch
}

// SymbolSync reconciles the registry against raw market-data
// observations. At most one run may be in flight; concurrent calls are
// rejected.
type SymbolSync struct {
	marketData drepo.MarketDataStore
	registry   *registry.Service
	logger     *applogger.Logger
	metrics    drepo.Metrics

	running  atomic.Bool
	lastSync atomic.Pointer[time.Time]
}

// NewSymbolSync wires the synchronization job.
func NewSymbolSync(marketData drepo.MarketDataStore, reg *registry.Service, metrics drepo.Metrics, logger *applogger.Logger) *SymbolSync {
	return &SymbolSync{marketData: marketData, registry: reg, metrics: metrics, logger: logger}
}

// SynchronizeMissingSymbols discovers tickers present in raw market
// data but absent from the registry and backfills them in batches.
// Cancellation is honored at batch boundaries.
func (s *SymbolSync) SynchronizeMissingSymbols(ctx context.Context, opts SyncOptions) (*models.SymbolSyncResult, error) {
	if opts.AssetClass != "" && !validAssetClasses[strings.ToUpper(opts.AssetClass)] {
		return nil, fmt.Errorf("invalid asset class filter %q", opts.AssetClass)
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncRunning
	}
	defer s.running.Store(false)

	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	result := &models.SymbolSyncResult{
		StartedAt:        time.Now(),
		AssetClassCounts: map[string]int{},
	}
	s.logger.Info("sync: starting", applogger.String("asset_class", opts.AssetClass))

	missing, warnings, err := s.discover(ctx, opts)
	if err != nil {
		result.FinishedAt = time.Now()
		result.Message = fmt.Sprintf("discovery failed: %v", err)
		return result, fmt.Errorf("sync discover: %w", err)
	}
	result.Warnings = warnings
	result.SymbolsDiscovered = len(missing)

	for start := 0; start < len(missing); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cancelled after batch %d: %v", len(result.Batches), err))
			break
		}
		end := start + opts.BatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := s.processBatch(ctx, len(result.Batches)+1, missing[start:end], opts.Concurrency)
		result.Batches = append(result.Batches, batch)
		result.SymbolsAdded += batch.Added
		result.SymbolsUpdated += batch.Updated
		result.SymbolsSkipped += batch.Skipped
		result.Errors = append(result.Errors, batch.Errors...)
		result.Warnings = append(result.Warnings, batch.Warnings...)
	}

	result.FinishedAt = time.Now()
	result.AssetClassCounts = s.registry.AssetClassCounts()
	result.Success = len(result.Errors) == 0
	if result.Success {
		now := result.FinishedAt
		s.lastSync.Store(&now)
		result.Message = fmt.Sprintf("synchronized %d symbols (%d added, %d updated, %d skipped)",
			result.SymbolsDiscovered, result.SymbolsAdded, result.SymbolsUpdated, result.SymbolsSkipped)
	} else {
		result.Message = fmt.Sprintf("completed with %d errors", len(result.Errors))
	}
	s.logger.Info("sync: finished",
		applogger.Int("discovered", result.SymbolsDiscovered),
		applogger.Int("added", result.SymbolsAdded),
		applogger.Int("errors", len(result.Errors)))
	s.metrics.RecordLatency("symbol_sync", result.FinishedAt.Sub(result.StartedAt).Seconds())
	return result, nil
}

// discover diffs observed tickers against the registry. Tickers that
// fail normalization become warnings, never registry entries.
func (s *SymbolSync) discover(ctx context.Context, opts SyncOptions) ([]models.MissingSymbol, []string, error) {
	observed, err := s.marketData.Observed(ctx)
	if err != nil {
		return nil, nil, err
	}

	classFilter := strings.ToUpper(opts.AssetClass)
	var missing []models.MissingSymbol
	var warnings []string
	// distinct raw spellings can normalize to one ticker; their record
	// counts merge into a single entry
	seen := make(map[string]int)
	for _, o := range observed {
		norm, ok := binance.NormalizeSymbol(o.Ticker)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unparseable ticker %q (%d records)", o.Ticker, o.Records))
			continue
		}
		if i, dup := seen[norm]; dup {
			m := &missing[i]
			m.Records += o.Records
			if o.FirstSeen.Before(m.FirstSeen) {
				m.FirstSeen = o.FirstSeen
			}
			if o.LastSeen.After(m.LastSeen) {
				m.LastSeen = o.LastSeen
			}
			continue
		}
		if _, exists := s.registry.Get(norm, ""); exists {
			continue
		}
		class := classifyTicker(norm)
		if classFilter != "" && class != classFilter {
			continue
		}
		seen[norm] = len(missing)
		missing = append(missing, models.MissingSymbol{
			Ticker:     norm,
			AssetClass: class,
			Records:    o.Records,
			FirstSeen:  o.FirstSeen,
			LastSeen:   o.LastSeen,
		})
	}
	return missing, warnings, nil
}

// processBatch creates/updates registry entries for one batch with
// bounded concurrency.
func (s *SymbolSync) processBatch(ctx context.Context, n int, batch []models.MissingSymbol, concurrency int) models.SyncBatchResult {
	result := models.SyncBatchResult{Batch: n}
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, m := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(m models.MissingSymbol) {
			defer wg.Done()
			defer func() { <-sem }()

			sym, created, err := s.registry.ResolveOrCreate(ctx, m.Ticker, "", m.AssetClass)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.Ticker, err))
			case created:
				result.Added++
			case sym.AssetClass != m.AssetClass:
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: asset class mismatch (%s vs %s)", m.Ticker, sym.AssetClass, m.AssetClass))
				result.Skipped++
			default:
				result.Skipped++
			}
		}(m)
	}
	wg.Wait()
	return result
}

// ValidateAndCleanSymbols runs integrity checks over the registry and
// repairs what it can.
func (s *SymbolSync) ValidateAndCleanSymbols(ctx context.Context) (*models.SymbolValidationReport, error) {
	report := &models.SymbolValidationReport{}
	for _, sym := range s.registry.ListAll() {
		report.Validated++
		var issues []string
		fixed := false

		if sym.Ticker == "" || sym.Venue == "" {
			issues = append(issues, fmt.Sprintf("%s: missing ticker or venue", sym.Key()))
		}
		base, quote, ok := models.DeriveCurrencyPair(sym.Ticker)
		if !ok {
			issues = append(issues, fmt.Sprintf("%s: cannot derive currency pair", sym.Ticker))
		} else if sym.BaseAsset != base || sym.QuoteAsset != quote {
			sym.BaseAsset, sym.QuoteAsset = base, quote
			fixed = true
		}
		if sym.AssetClass == "" {
			sym.AssetClass = classifyTicker(sym.Ticker)
			fixed = true
		}

		if fixed {
			if err := s.registry.Upsert(ctx, sym); err != nil {
				issues = append(issues, fmt.Sprintf("%s: repair failed: %v", sym.Ticker, err))
			} else {
				report.Fixed++
			}
		}
		if len(issues) > 0 {
			report.WithIssues++
			report.Issues = append(report.Issues, issues...)
		}
	}
	s.logger.Info("sync: validation pass",
		applogger.Int("validated", report.Validated),
		applogger.Int("with_issues", report.WithIssues),
		applogger.Int("fixed", report.Fixed))
	return report, nil
}

// Status reports the current synchronization state plus data-quality
// indicators: raw records with no registry row, and tracked symbols
// with no raw records.
func (s *SymbolSync) Status(ctx context.Context) (*models.SyncStatus, error) {
	counts := s.registry.Counts()
	status := &models.SyncStatus{
		Running:        s.running.Load(),
		LastSyncAt:     s.lastSync.Load(),
		TotalSymbols:   counts.Total,
		ActiveSymbols:  counts.Active,
		TrackedSymbols: counts.Tracked,
	}

	observed, err := s.marketData.Observed(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync status: %w", err)
	}
	seen := make(map[string]int64, len(observed))
	for _, o := range observed {
		norm, ok := binance.NormalizeSymbol(o.Ticker)
		if !ok {
			status.UnregisteredRecords += o.Records
			continue
		}
		seen[norm] = o.Records
		if _, exists := s.registry.Get(norm, ""); !exists {
			status.UnregisteredRecords += o.Records
		}
	}
	for _, sym := range s.registry.ListTracked() {
		if seen[sym.Ticker] == 0 {
			status.TrackedWithoutData++
		}
	}
	return status, nil
}

// classifyTicker assigns an asset class to a normalized ticker. Stream
// ingestion only covers crypto venues today, so everything that passed
// normalization lands in CRYPTO.
func classifyTicker(string) string {
	return "CRYPTO"
}
