package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

func consensusInput(now time.Time) []models.TradingSignal {
	mk := func(src models.SignalSource, typ models.SignalType, conf, strength float64) models.TradingSignal {
		return models.TradingSignal{
			Symbol:      "BTCUSDT",
			Timeframe:   "1h",
			Type:        typ,
			Source:      src,
			Confidence:  conf,
			Strength:    strength,
			GeneratedAt: now,
			ExpiresAt:   now.Add(time.Hour),
		}
	}
	return []models.TradingSignal{
		mk(models.SourceRSI, models.SignalBuy, 80, 70),
		mk(models.SourceMACD, models.SignalBuy, 70, 60),
		mk(models.SourceBollinger, models.SignalStrongBuy, 85, 80),
		mk(models.SourceVolume, models.SignalSell, 55, 50),
		mk(models.SourcePriceAction, models.SignalHold, 40, 40),
	}
}

func TestConsensusBullishMajority(t *testing.T) {
	now := time.Now()
	got := Consensus("BTCUSDT", "1h", consensusInput(now), DefaultConsensusOptions(), now)

	assert.True(t, got.Type.Bullish())
	assert.Equal(t, 3, got.BullishCount)
	assert.Equal(t, 1, got.BearishCount)
	assert.Equal(t, 1, got.NeutralCount)
	assert.Greater(t, got.Confidence, 60.0)
	assert.NotEmpty(t, got.Rationale)
}

func TestConsensusIdempotent(t *testing.T) {
	now := time.Now()
	in := consensusInput(now)
	opts := DefaultConsensusOptions()

	first := Consensus("BTCUSDT", "1h", in, opts, now)
	for i := 0; i < 5; i++ {
		again := Consensus("BTCUSDT", "1h", in, opts, now)
		assert.Equal(t, first.Type, again.Type)
		assert.Equal(t, first.Confidence, again.Confidence)
		assert.Equal(t, first.BullishWeight, again.BullishWeight)
		assert.Equal(t, first.BearishWeight, again.BearishWeight)
		assert.Equal(t, first.Rationale, again.Rationale)
	}
}

func TestConsensusConflictDiscounted(t *testing.T) {
	now := time.Now()
	in := []models.TradingSignal{
		{Symbol: "BTCUSDT", Timeframe: "1h", Type: models.SignalBuy, Confidence: 70, Strength: 70, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Symbol: "BTCUSDT", Timeframe: "1h", Type: models.SignalSell, Confidence: 70, Strength: 70, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	opts := DefaultConsensusOptions()
	opts.ConflictDiscount = 0.5

	got := Consensus("BTCUSDT", "1h", in, opts, now)
	assert.Equal(t, models.SignalHold, got.Type)
	// each side holds 50%, discounted by half
	assert.InDelta(t, 25.0, got.Confidence, 0.001)
}

func TestConsensusExcludesExpired(t *testing.T) {
	now := time.Now()
	in := []models.TradingSignal{
		{Symbol: "BTCUSDT", Timeframe: "1h", Type: models.SignalSell, Confidence: 90, Strength: 90, GeneratedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Symbol: "BTCUSDT", Timeframe: "1h", Type: models.SignalBuy, Confidence: 70, Strength: 70, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}

	got := Consensus("BTCUSDT", "1h", in, DefaultConsensusOptions(), now)
	assert.True(t, got.Type.Bullish())
	assert.Equal(t, 0, got.BearishCount)
}

func TestConsensusEmptySetIsHold(t *testing.T) {
	now := time.Now()
	got := Consensus("BTCUSDT", "1h", nil, DefaultConsensusOptions(), now)
	require.NotNil(t, got)
	assert.Equal(t, models.SignalHold, got.Type)
	assert.Zero(t, got.Confidence)
}

func TestConsensusTimeDecayNeverBelowFloor(t *testing.T) {
	now := time.Now()
	opts := DefaultConsensusOptions()
	opts.DecayWindow = 10 * time.Minute
	opts.DecayFloor = 0.1

	// generated far beyond the decay window but not expired
	in := []models.TradingSignal{
		{Symbol: "BTCUSDT", Timeframe: "1h", Type: models.SignalBuy, Confidence: 80, Strength: 80, GeneratedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
	}
	got := Consensus("BTCUSDT", "1h", in, opts, now)
	assert.InDelta(t, 80*80*0.1, got.BullishWeight, 0.001)
}

func TestScoreSignalRatingBuckets(t *testing.T) {
	cases := []struct {
		confidence float64
		rating     string
	}{
		{100, "Excellent"},
		{70, "Strong"},
		{45, "Good"},
		{25, "Fair"},
		{0, "Poor"},
	}
	// isolate the confidence term so the bucket boundaries are exact
	w := ScoreWeights{Confidence: 1}
	for _, c := range cases {
		got := ScoreSignal(models.TradingSignal{Confidence: c.confidence}, w, 1)
		assert.Equal(t, c.rating, got.Rating, "confidence %v", c.confidence)
	}
}

func TestScoreSignalBounded(t *testing.T) {
	s := models.TradingSignal{Confidence: 100, Strength: 100, Reliability: 100, MarketCondition: 100, SupportingIndicators: 50}
	got := ScoreSignal(s, DefaultScoreWeights(), 10)
	assert.LessOrEqual(t, got.Score, 100.0)
	assert.GreaterOrEqual(t, got.Score, 0.0)
}
