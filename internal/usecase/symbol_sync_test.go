package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/registry"
)

type fakeMarketData struct {
	observed []drepo.ObservedTicker
	err      error
}

func (f *fakeMarketData) Store(context.Context, *models.PriceUpdate) error { return nil }
func (f *fakeMarketData) Observed(context.Context) ([]drepo.ObservedTicker, error) {
	return f.observed, f.err
}
func (f *fakeMarketData) Health(context.Context) error { return nil }

type syncMemStore struct {
	mu   sync.Mutex
	rows map[string]*models.Symbol
}

func newSyncMemStore() *syncMemStore {
	return &syncMemStore{rows: make(map[string]*models.Symbol)}
}

func (m *syncMemStore) Upsert(_ context.Context, s *models.Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[s.Key()] = &cp
	return nil
}

func (m *syncMemStore) List(context.Context) ([]*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Symbol, 0, len(m.rows))
	for _, s := range m.rows {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *syncMemStore) Health(context.Context) error { return nil }

func newSync(t *testing.T, observed []drepo.ObservedTicker) (*SymbolSync, *registry.Service) {
	t.Helper()
	reg := registry.NewService(newSyncMemStore(), "BINANCE", collectorLogger(t))
	return NewSymbolSync(&fakeMarketData{observed: observed}, reg, nopMetrics{}, collectorLogger(t)), reg
}

func TestSynchronizeDiscoversMissingSymbol(t *testing.T) {
	now := time.Now()
	s, reg := newSync(t, []drepo.ObservedTicker{
		{Ticker: "DOGEUSDT", Records: 50, FirstSeen: now.Add(-time.Hour), LastSeen: now},
	})

	result, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SymbolsDiscovered)
	assert.Equal(t, 1, result.SymbolsAdded)

	sym, ok := reg.Get("DOGEUSDT", "")
	require.True(t, ok)
	assert.Equal(t, "CRYPTO", sym.AssetClass)
}

func TestSynchronizeIdempotent(t *testing.T) {
	s, _ := newSync(t, []drepo.ObservedTicker{
		{Ticker: "DOGEUSDT", Records: 50},
		{Ticker: "BTCUSDT", Records: 10},
	})

	first, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.SymbolsAdded)

	second, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, second.SymbolsDiscovered)
	assert.Zero(t, second.SymbolsAdded)
	assert.True(t, second.Success)
}

func TestSynchronizeMergesAliasedSpellings(t *testing.T) {
	now := time.Now()
	s, reg := newSync(t, []drepo.ObservedTicker{
		{Ticker: "BTC-USDT", Records: 30, FirstSeen: now.Add(-2 * time.Hour), LastSeen: now.Add(-time.Hour)},
		{Ticker: "BTCUSDT", Records: 20, FirstSeen: now.Add(-time.Hour), LastSeen: now},
	})

	result, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SymbolsDiscovered)
	assert.Equal(t, 1, result.SymbolsAdded)
	assert.Equal(t, 1, reg.Counts().Total)

	sym, ok := reg.Get("BTCUSDT", "")
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", sym.Ticker)
}

func TestSynchronizeUnparseableTickerIsWarning(t *testing.T) {
	s, reg := newSync(t, []drepo.ObservedTicker{
		{Ticker: "???", Records: 7},
		{Ticker: "ETHUSDT", Records: 3},
	})

	result, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SymbolsAdded)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "???")
	assert.Equal(t, 1, reg.Counts().Total)
}

func TestSynchronizeRejectsInvalidAssetClass(t *testing.T) {
	s, _ := newSync(t, nil)
	_, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{AssetClass: "POKEMON"})
	assert.Error(t, err)
}

func TestSynchronizeSingleFlight(t *testing.T) {
	s, _ := newSync(t, nil)
	require.True(t, s.running.CompareAndSwap(false, true))
	defer s.running.Store(false)

	_, err := s.SynchronizeMissingSymbols(context.Background(), SyncOptions{})
	assert.ErrorIs(t, err, ErrSyncRunning)
}

func TestSynchronizeCancelledBetweenBatches(t *testing.T) {
	var observed []drepo.ObservedTicker
	for _, tk := range []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT"} {
		observed = append(observed, drepo.ObservedTicker{Ticker: tk, Records: 1})
	}
	s, _ := newSync(t, observed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.SynchronizeMissingSymbols(ctx, SyncOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Batches)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateAndCleanRepairsCurrencyPair(t *testing.T) {
	s, reg := newSync(t, nil)
	ctx := context.Background()

	sym, _, err := reg.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)
	sym.BaseAsset = "WRONG"
	require.NoError(t, reg.Upsert(ctx, sym))

	report, err := s.ValidateAndCleanSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Validated)
	assert.Equal(t, 1, report.Fixed)

	fixed, ok := reg.Get("BTCUSDT", "")
	require.True(t, ok)
	assert.Equal(t, "BTC", fixed.BaseAsset)
}

func TestStatusReportsDataQualityIndicators(t *testing.T) {
	s, reg := newSync(t, []drepo.ObservedTicker{
		{Ticker: "DOGEUSDT", Records: 50}, // not in registry
	})
	ctx := context.Background()

	_, _, err := reg.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)
	_, err = reg.SetTracked(ctx, "BTCUSDT", "", true)
	require.NoError(t, err)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.TotalSymbols)
	assert.Equal(t, 1, status.TrackedSymbols)
	assert.Equal(t, int64(50), status.UnregisteredRecords)
	// BTCUSDT is tracked but has zero raw records
	assert.Equal(t, 1, status.TrackedWithoutData)
}
