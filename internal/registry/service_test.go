package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	applogger "TradePulse/pkg/logger"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*models.Symbol
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.Symbol)}
}

func (m *memStore) Upsert(_ context.Context, s *models.Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[s.Key()] = &cp
	return nil
}

func (m *memStore) List(_ context.Context) ([]*models.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Symbol, 0, len(m.rows))
	for _, s := range m.rows {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Health(context.Context) error { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func TestResolveOrCreate(t *testing.T) {
	svc := NewService(newMemStore(), "BINANCE", testLogger(t))
	ctx := context.Background()

	sym, created, err := svc.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "BTCUSDT", sym.Ticker)
	assert.Equal(t, "BINANCE", sym.Venue)
	assert.Equal(t, "BTC", sym.BaseAsset)
	assert.Equal(t, "USDT", sym.QuoteAsset)
	assert.True(t, sym.IsActive)
	assert.False(t, sym.IsTracked)
	assert.NotEmpty(t, sym.ID)

	again, created, err := svc.ResolveOrCreate(ctx, "btcusdt", "BINANCE", "CRYPTO")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sym.ID, again.ID)
	assert.Equal(t, 1, svc.Counts().Total)
}

func TestTickerVenueUnique(t *testing.T) {
	svc := NewService(newMemStore(), "BINANCE", testLogger(t))
	ctx := context.Background()

	_, _, err := svc.ResolveOrCreate(ctx, "BTCUSDT", "BINANCE", "CRYPTO")
	require.NoError(t, err)
	other, created, err := svc.ResolveOrCreate(ctx, "BTCUSDT", "COINBASE", "CRYPTO")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "COINBASE", other.Venue)
	assert.Equal(t, 2, svc.Counts().Total)
}

func TestSetTrackedAndTrackedTickers(t *testing.T) {
	svc := NewService(newMemStore(), "BINANCE", testLogger(t))
	ctx := context.Background()

	for _, tk := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		_, _, err := svc.ResolveOrCreate(ctx, tk, "", "CRYPTO")
		require.NoError(t, err)
	}
	_, err := svc.SetTracked(ctx, "BTCUSDT", "", true)
	require.NoError(t, err)
	_, err = svc.SetTracked(ctx, "ETHUSDT", "", true)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, svc.TrackedTickers())
	assert.Equal(t, Counts{Total: 3, Active: 3, Tracked: 2}, svc.Counts())
}

func TestDeactivateNeverDeletes(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, "BINANCE", testLogger(t))
	ctx := context.Background()

	_, _, err := svc.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)
	_, err = svc.SetTracked(ctx, "BTCUSDT", "", true)
	require.NoError(t, err)

	sym, err := svc.Deactivate(ctx, "BTCUSDT", "")
	require.NoError(t, err)
	assert.False(t, sym.IsActive)
	assert.False(t, sym.IsTracked)

	// still present in both index and store
	assert.Len(t, svc.ListAll(), 1)
	rows, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Empty(t, svc.ListActive())
}

func TestUpdateMetadataMerges(t *testing.T) {
	svc := NewService(newMemStore(), "BINANCE", testLogger(t))
	ctx := context.Background()

	_, _, err := svc.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)
	_, err = svc.UpdateMetadata(ctx, "BTCUSDT", "", map[string]string{"a": "1"})
	require.NoError(t, err)
	sym, err := svc.UpdateMetadata(ctx, "BTCUSDT", "", map[string]string{"b": "2"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, sym.Metadata)
}

func TestMutateUnknownSymbol(t *testing.T) {
	svc := NewService(newMemStore(), "BINANCE", testLogger(t))
	_, err := svc.SetTracked(context.Background(), "NOPEUSDT", "", true)
	assert.Error(t, err)
}

func TestLoadRebuildsIndex(t *testing.T) {
	store := newMemStore()
	first := NewService(store, "BINANCE", testLogger(t))
	ctx := context.Background()
	_, _, err := first.ResolveOrCreate(ctx, "BTCUSDT", "", "CRYPTO")
	require.NoError(t, err)

	second := NewService(store, "BINANCE", testLogger(t))
	require.NoError(t, second.Load(ctx))
	_, ok := second.Get("BTCUSDT", "")
	assert.True(t, ok)
}
