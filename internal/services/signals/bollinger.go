package signals

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

type bollingerSource struct {
	proximity float64
}

// NewBollingerSource signals when price sits inside the configured
// fraction of the band width at either extreme.
func NewBollingerSource(proximity float64) Source {
	if proximity <= 0 || proximity >= 0.5 {
		proximity = 0.1
	}
	return &bollingerSource{proximity: proximity}
}

func (s *bollingerSource) Name() models.SignalSource { return models.SourceBollinger }

func (s *bollingerSource) Evaluate(snap *models.IndicatorSnapshot, _ []models.Candle) (*models.TradingSignal, error) {
	if snap.BBUpper <= snap.BBLower {
		return nil, nil
	}
	pos := snap.BBPosition
	switch {
	case pos <= s.proximity:
		depth := (s.proximity - pos) / s.proximity // 0 at edge of zone, 1 at band
		return newSignal(snap, s.Name(), models.SignalBuy,
			60+depth*40, 50+depth*40,
			fmt.Sprintf("price in bottom %.0f%% of Bollinger band", s.proximity*100)), nil
	case pos >= 1-s.proximity:
		depth := (pos - (1 - s.proximity)) / s.proximity
		return newSignal(snap, s.Name(), models.SignalSell,
			60+depth*40, 50+depth*40,
			fmt.Sprintf("price in top %.0f%% of Bollinger band", s.proximity*100)), nil
	default:
		return nil, nil
	}
}
