package signals

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

type volumeSource struct {
	breakout float64
}

// NewVolumeSource signals on volume breakouts (volume far above its
// trailing average). Direction comes from the breakout candle itself:
// a close above the open is bullish, below bearish. A doji breakout
// carries no direction and yields no signal.
func NewVolumeSource(breakout float64) Source {
	if breakout <= 1 {
		breakout = 2.0
	}
	return &volumeSource{breakout: breakout}
}

func (s *volumeSource) Name() models.SignalSource { return models.SourceVolume }

func (s *volumeSource) Evaluate(snap *models.IndicatorSnapshot, candles []models.Candle) (*models.TradingSignal, error) {
	if snap.VolumeRatio < s.breakout || len(candles) == 0 {
		return nil, nil
	}
	last := candles[len(candles)-1]
	excess := snap.VolumeRatio - s.breakout

	var typ models.SignalType
	switch {
	case last.Close > last.Open:
		typ = models.SignalBuy
	case last.Close < last.Open:
		typ = models.SignalSell
	default:
		return nil, nil
	}
	return newSignal(snap, s.Name(), typ,
		50+excess*15, 45+excess*20,
		fmt.Sprintf("volume %.1fx trailing average on a %s candle", snap.VolumeRatio, directionWord(typ))), nil
}

func directionWord(t models.SignalType) string {
	if t.Bullish() {
		return "bullish"
	}
	return "bearish"
}
