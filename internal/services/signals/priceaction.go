package signals

import (
	"math"

	"TradePulse/internal/domain/models"
)

type priceActionSource struct{}

// NewPriceActionSource signals on single-candle reversal shapes (hammer,
// shooting star) judged against the preceding two candles' drift.
func NewPriceActionSource() Source { return &priceActionSource{} }

func (s *priceActionSource) Name() models.SignalSource { return models.SourcePriceAction }

func (s *priceActionSource) Evaluate(snap *models.IndicatorSnapshot, candles []models.Candle) (*models.TradingSignal, error) {
	if len(candles) < 3 {
		return nil, nil
	}
	last := candles[len(candles)-1]
	body := math.Abs(last.Close - last.Open)
	rng := last.High - last.Low
	if rng <= 0 || body == 0 {
		return nil, nil
	}
	upper := last.High - math.Max(last.Open, last.Close)
	lower := math.Min(last.Open, last.Close) - last.Low

	// drift of the two candles preceding the shape
	prior := candles[len(candles)-3 : len(candles)-1]
	drift := prior[1].Close - prior[0].Open

	// hammer: long lower shadow after a down move
	if lower >= 2*body && upper <= body && drift < 0 {
		ratio := lower / body
		return newSignal(snap, s.Name(), models.SignalBuy,
			50+math.Min(ratio, 4)*8, 45+math.Min(ratio, 4)*8,
			"hammer after down move"), nil
	}
	// shooting star: long upper shadow after an up move
	if upper >= 2*body && lower <= body && drift > 0 {
		ratio := upper / body
		return newSignal(snap, s.Name(), models.SignalSell,
			50+math.Min(ratio, 4)*8, 45+math.Min(ratio, 4)*8,
			"shooting star after up move"), nil
	}
	return nil, nil
}
