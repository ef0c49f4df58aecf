package signals

import (
	"math"

	"TradePulse/internal/domain/models"
)

// ScoreWeights are the caller-supplied blend for the composite score.
// They are normalized by their sum, so absolute magnitudes do not matter.
type ScoreWeights struct {
	Confidence           float64
	Strength             float64
	Reliability          float64
	MarketCondition      float64
	SupportingIndicators float64
	VolumeConfirmation   float64
}

// DefaultScoreWeights favor confidence and strength over the softer
// inputs.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Confidence:           0.30,
		Strength:             0.25,
		Reliability:          0.15,
		MarketCondition:      0.10,
		SupportingIndicators: 0.10,
		VolumeConfirmation:   0.10,
	}
}

// supportingCap bounds the supporting-indicator contribution so a pile
// of weak confirmations cannot dominate the score.
const supportingCap = 5

// ScoreSignal computes the weighted composite quality score (0-100) and
// its qualitative rating. volumeRatio is the current volume-to-average
// ratio from the snapshot the signal was generated against; 1.0 is
// neutral.
func ScoreSignal(sig models.TradingSignal, w ScoreWeights, volumeRatio float64) models.SignalScore {
	total := w.Confidence + w.Strength + w.Reliability + w.MarketCondition + w.SupportingIndicators + w.VolumeConfirmation
	if total <= 0 {
		w = DefaultScoreWeights()
		total = 1
	}

	supporting := math.Min(float64(sig.SupportingIndicators), supportingCap) / supportingCap * 100
	volume := clamp(volumeRatio/2.0*100, 0, 100)

	score := (sig.Confidence*w.Confidence +
		sig.Strength*w.Strength +
		sig.Reliability*w.Reliability +
		sig.MarketCondition*w.MarketCondition +
		supporting*w.SupportingIndicators +
		volume*w.VolumeConfirmation) / total

	return models.SignalScore{Score: clamp(score, 0, 100), Rating: rating(score)}
}

func rating(score float64) string {
	switch {
	case score >= 81:
		return "Excellent"
	case score >= 61:
		return "Strong"
	case score >= 41:
		return "Good"
	case score >= 21:
		return "Fair"
	default:
		return "Poor"
	}
}
