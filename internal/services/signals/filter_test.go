package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

func sig(src models.SignalSource, typ models.SignalType, confidence float64, at time.Time) models.TradingSignal {
	return models.TradingSignal{
		Symbol:      "BTCUSDT",
		Timeframe:   "1h",
		Type:        typ,
		Source:      src,
		Confidence:  confidence,
		Strength:    60,
		Reliability: 70,
		Price:       50000,
		GeneratedAt: at,
	}
}

func TestFilterMinConfidencePreservesOrder(t *testing.T) {
	now := time.Now()
	in := []models.TradingSignal{
		sig(models.SourceRSI, models.SignalBuy, 80, now),
		sig(models.SourceMACD, models.SignalSell, 30, now),
		sig(models.SourceBollinger, models.SignalBuy, 65, now),
		sig(models.SourceVolume, models.SignalSell, 49.9, now),
		sig(models.SourceStochastic, models.SignalSell, 55, now),
	}

	out := Filter(in, FilterOptions{MinConfidence: 50})
	require.Len(t, out, 3)
	assert.Equal(t, models.SourceRSI, out[0].Source)
	assert.Equal(t, models.SourceBollinger, out[1].Source)
	assert.Equal(t, models.SourceStochastic, out[2].Source)
}

func TestFilterTypeAndSourceSets(t *testing.T) {
	now := time.Now()
	in := []models.TradingSignal{
		sig(models.SourceRSI, models.SignalBuy, 80, now),
		sig(models.SourceMACD, models.SignalSell, 80, now),
		sig(models.SourceVolume, models.SignalBuy, 80, now),
	}

	out := Filter(in, FilterOptions{
		AllowedTypes:    []models.SignalType{models.SignalBuy},
		ExcludedSources: []models.SignalSource{models.SourceVolume},
	})
	require.Len(t, out, 1)
	assert.Equal(t, models.SourceRSI, out[0].Source)
}

func TestFilterMaxAge(t *testing.T) {
	now := time.Now()
	in := []models.TradingSignal{
		sig(models.SourceRSI, models.SignalBuy, 80, now.Add(-2*time.Hour)),
		sig(models.SourceMACD, models.SignalBuy, 80, now.Add(-time.Minute)),
	}

	out := Filter(in, FilterOptions{MaxAge: time.Hour, Now: now})
	require.Len(t, out, 1)
	assert.Equal(t, models.SourceMACD, out[0].Source)
}

func TestFilterDedupKeepsHigherConfidence(t *testing.T) {
	now := time.Now()
	a := sig(models.SourceRSI, models.SignalBuy, 60, now)
	b := sig(models.SourceStochastic, models.SignalBuy, 75, now.Add(time.Minute))
	c := sig(models.SourceMACD, models.SignalSell, 70, now)

	out := Filter([]models.TradingSignal{a, b, c}, FilterOptions{
		DedupWindow:     5 * time.Minute,
		DedupPriceDelta: 0.01,
		Now:             now,
	})
	require.Len(t, out, 2)
	// the two Buy signals collapse to the higher-confidence one, keeping
	// the earlier position
	assert.Equal(t, models.SourceStochastic, out[0].Source)
	assert.Equal(t, 75.0, out[0].Confidence)
	assert.Equal(t, models.SourceMACD, out[1].Source)
}

func TestFilterDedupNoSurvivingDuplicates(t *testing.T) {
	now := time.Now()
	var in []models.TradingSignal
	for i := 0; i < 10; i++ {
		in = append(in, sig(models.SourceRSI, models.SignalBuy, float64(50+i), now.Add(time.Duration(i)*time.Second)))
	}

	out := Filter(in, FilterOptions{DedupWindow: time.Minute, Now: now})
	seen := map[string]bool{}
	for _, s := range out {
		key := s.Symbol + "|" + s.Timeframe + "|" + string(s.Type)
		assert.False(t, seen[key], "duplicate survivor %s", key)
		seen[key] = true
	}
	require.Len(t, out, 1)
	assert.Equal(t, 59.0, out[0].Confidence)
}

func TestFilterDedupDistinctPricesSurvive(t *testing.T) {
	now := time.Now()
	a := sig(models.SourceRSI, models.SignalBuy, 60, now)
	b := sig(models.SourceMACD, models.SignalBuy, 70, now)
	b.Price = a.Price * 1.05

	out := Filter([]models.TradingSignal{a, b}, FilterOptions{
		DedupWindow:     time.Minute,
		DedupPriceDelta: 0.01,
		Now:             now,
	})
	assert.Len(t, out, 2)
}
