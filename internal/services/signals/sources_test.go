package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

func snapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Symbol:      "BTCUSDT",
		Timeframe:   "1h",
		Price:       50000,
		RSI:         50,
		BBUpper:     51000,
		BBMiddle:    50000,
		BBLower:     49000,
		BBPosition:  0.5,
		StochK:      50,
		StochD:      50,
		PrevStochK:  50,
		PrevStochD:  50,
		VolumeRatio: 1,
		GeneratedAt: time.Now(),
	}
}

func window(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		p := 50000 + float64(i)*10
		out[i] = models.Candle{Open: p, High: p + 50, Low: p - 50, Close: p + 20, Volume: 100}
	}
	return out
}

func TestRSISourceOversoldEmitsBuy(t *testing.T) {
	snap := snapshot()
	snap.RSI = 25

	sig, err := NewRSISource(30, 70).Evaluate(snap, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Type)
	assert.Equal(t, models.SourceRSI, sig.Source)
	assert.Greater(t, sig.Confidence, 0.0)
}

func TestRSISourceNeutralEmitsNothing(t *testing.T) {
	sig, err := NewRSISource(30, 70).Evaluate(snapshot(), nil)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMACDSourceCrossover(t *testing.T) {
	snap := snapshot()
	snap.MACD = 120
	snap.MACDSignal = 80
	snap.MACDHist = 40

	sig, err := NewMACDSource().Evaluate(snap, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Type)
}

func TestBollingerSourceEdges(t *testing.T) {
	snap := snapshot()
	snap.BBPosition = 0.05
	sig, err := NewBollingerSource(0.1).Evaluate(snap, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.Type.Bullish())

	snap.BBPosition = 0.97
	sig, err = NewBollingerSource(0.1).Evaluate(snap, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.Type.Bearish())
}

func TestStochasticSourceNeedsCross(t *testing.T) {
	snap := snapshot()
	snap.StochK, snap.StochD = 15, 12
	snap.PrevStochK, snap.PrevStochD = 10, 12

	sig, err := NewStochasticSource().Evaluate(snap, nil)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Type)

	// same zone but no crossover
	snap.PrevStochK, snap.PrevStochD = 14, 12
	sig, err = NewStochasticSource().Evaluate(snap, nil)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestVolumeSourceDirectionFromCandle(t *testing.T) {
	snap := snapshot()
	snap.VolumeRatio = 3

	up := window(5)
	sig, err := NewVolumeSource(2).Evaluate(snap, up)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Type)

	down := window(5)
	last := &down[len(down)-1]
	last.Close = last.Open - 100
	sig, err = NewVolumeSource(2).Evaluate(snap, down)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSell, sig.Type)
}

func TestSupportResistanceSourceProximity(t *testing.T) {
	snap := snapshot()
	snap.Support = []float64{49800}

	sig, err := NewSupportResistanceSource(0.01).Evaluate(snap, window(30))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBuy, sig.Type)

	// too few candles to trust the levels
	sig, err = NewSupportResistanceSource(0.01).Evaluate(snap, window(5))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestAllEmittedSignalsBounded(t *testing.T) {
	snaps := []*models.IndicatorSnapshot{snapshot(), snapshot(), snapshot()}
	snaps[0].RSI = 2
	snaps[1].RSI = 99
	snaps[1].BBPosition = 1.2
	snaps[2].VolumeRatio = 50
	snaps[2].MACD, snaps[2].MACDSignal, snaps[2].MACDHist = 5000, 100, 4900

	for _, snap := range snaps {
		for _, src := range NewSources(DefaultOptions()) {
			sig, err := src.Evaluate(snap, window(30))
			require.NoError(t, err)
			if sig == nil {
				continue
			}
			assert.GreaterOrEqual(t, sig.Confidence, 0.0, "source %s", src.Name())
			assert.LessOrEqual(t, sig.Confidence, 100.0, "source %s", src.Name())
			assert.GreaterOrEqual(t, sig.Strength, 0.0, "source %s", src.Name())
			assert.LessOrEqual(t, sig.Strength, 100.0, "source %s", src.Name())
		}
	}
}

func TestNewSourcesEnableFlags(t *testing.T) {
	got := NewSources(Options{Enabled: map[models.SignalSource]bool{
		models.SourceRSI:  true,
		models.SourceMACD: true,
	}})
	require.Len(t, got, 2)
	assert.Equal(t, models.SourceRSI, got[0].Name())
	assert.Equal(t, models.SourceMACD, got[1].Name())
}
