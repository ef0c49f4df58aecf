package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/services/signals"
)

type fakeCandleStore struct {
	candles []models.Candle
	err     error
}

func (f *fakeCandleStore) GetCandles(context.Context, string, time.Time, time.Time, drepo.Timeframe) ([]models.Candle, error) {
	return f.candles, f.err
}

func (f *fakeCandleStore) GetLatestNCandles(context.Context, string, int, drepo.Timeframe) ([]models.Candle, error) {
	return f.candles, f.err
}

// oversoldWindow alternates -3/+1 moves so Wilder RSI settles near 25.
func oversoldWindow(n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 1000.0
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		if i%2 == 0 {
			price -= 3
		} else {
			price += 1
		}
		out[i] = models.Candle{
			Bucket: ts.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   price + 1,
			High:   price + 2,
			Low:    price - 2,
			Close:  price,
			Volume: 100,
		}
	}
	return out
}

type panicSource struct{}

func (panicSource) Name() models.SignalSource { return models.SourceVolume }
func (panicSource) Evaluate(*models.IndicatorSnapshot, []models.Candle) (*models.TradingSignal, error) {
	panic("boom")
}

func engineConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.MinConfidence = 1
	cfg.MinStrength = 1
	return cfg
}

func TestEvaluateOversoldEmitsRSIBuy(t *testing.T) {
	store := &fakeCandleStore{candles: oversoldWindow(60)}
	eng := NewSignalEngine(store, []signals.Source{signals.NewRSISource(30, 70)},
		nil, nil, nopMetrics{}, collectorLogger(t), engineConfig())

	out, err := eng.Evaluate(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.SourceRSI, out[0].Source)
	assert.True(t, out[0].Type.Bullish())
	assert.Greater(t, out[0].Confidence, 0.0)
	assert.False(t, out[0].ExpiresAt.IsZero())
}

func TestEvaluateSourcePanicIsolated(t *testing.T) {
	store := &fakeCandleStore{candles: oversoldWindow(60)}
	eng := NewSignalEngine(store,
		[]signals.Source{panicSource{}, signals.NewRSISource(30, 70)},
		nil, nil, nopMetrics{}, collectorLogger(t), engineConfig())

	out, err := eng.Evaluate(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.SourceRSI, out[0].Source)
}

func TestEvaluateShortWindowIsEmptyNotError(t *testing.T) {
	store := &fakeCandleStore{candles: oversoldWindow(5)}
	eng := NewSignalEngine(store, signals.NewSources(signals.DefaultOptions()),
		nil, nil, nopMetrics{}, collectorLogger(t), engineConfig())

	out, err := eng.Evaluate(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestActiveSignalsExcludeExpired(t *testing.T) {
	store := &fakeCandleStore{candles: oversoldWindow(60)}
	cfg := engineConfig()
	cfg.SignalTTL = time.Nanosecond
	eng := NewSignalEngine(store, []signals.Source{signals.NewRSISource(30, 70)},
		nil, nil, nopMetrics{}, collectorLogger(t), cfg)

	_, err := eng.Evaluate(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	assert.Empty(t, eng.ActiveSignals("BTCUSDT", drepo.TF1h))
}

func TestConsensusFromActiveSignals(t *testing.T) {
	store := &fakeCandleStore{candles: oversoldWindow(60)}
	eng := NewSignalEngine(store, []signals.Source{signals.NewRSISource(30, 70)},
		nil, nil, nopMetrics{}, collectorLogger(t), engineConfig())

	_, err := eng.Evaluate(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)

	cons, err := eng.Consensus(context.Background(), "BTCUSDT", drepo.TF1h)
	require.NoError(t, err)
	assert.True(t, cons.Type.Bullish())
	assert.Equal(t, 1, cons.BullishCount)
}

func TestCapSignalsKeepsGenerationOrder(t *testing.T) {
	in := []models.TradingSignal{
		{Source: models.SourceRSI, Confidence: 60, Strength: 60},
		{Source: models.SourceMACD, Confidence: 90, Strength: 60},
		{Source: models.SourceBollinger, Confidence: 40, Strength: 60},
		{Source: models.SourceVolume, Confidence: 80, Strength: 60},
	}
	out := capSignals(in, 2)
	require.Len(t, out, 2)
	// the two highest-confidence entries survive in generation order
	assert.Equal(t, models.SourceMACD, out[0].Source)
	assert.Equal(t, models.SourceVolume, out[1].Source)
}
