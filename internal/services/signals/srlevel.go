package signals

import (
	"fmt"
	"math"

	"TradePulse/internal/domain/models"
)

// minimum candle window to trust detected levels
const srMinCandles = 20

type srSource struct {
	proximity float64
}

// NewSupportResistanceSource signals when price trades within the
// configured fraction of a detected support or resistance level.
func NewSupportResistanceSource(proximity float64) Source {
	if proximity <= 0 {
		proximity = 0.01
	}
	return &srSource{proximity: proximity}
}

func (s *srSource) Name() models.SignalSource { return models.SourceSupportResistance }

func (s *srSource) Evaluate(snap *models.IndicatorSnapshot, candles []models.Candle) (*models.TradingSignal, error) {
	if len(candles) < srMinCandles {
		return nil, nil
	}
	if level, dist, ok := nearest(snap.Price, snap.Support); ok && dist <= s.proximity {
		closeness := 1 - dist/s.proximity
		return newSignal(snap, s.Name(), models.SignalBuy,
			55+closeness*35, 50+closeness*35,
			fmt.Sprintf("price %.4f within %.1f%% of support %.4f", snap.Price, s.proximity*100, level)), nil
	}
	if level, dist, ok := nearest(snap.Price, snap.Resistance); ok && dist <= s.proximity {
		closeness := 1 - dist/s.proximity
		return newSignal(snap, s.Name(), models.SignalSell,
			55+closeness*35, 50+closeness*35,
			fmt.Sprintf("price %.4f within %.1f%% of resistance %.4f", snap.Price, s.proximity*100, level)), nil
	}
	return nil, nil
}

// nearest returns the level closest to price and the relative distance.
func nearest(price float64, levels []float64) (level, dist float64, ok bool) {
	if price <= 0 || len(levels) == 0 {
		return 0, 0, false
	}
	best := math.Inf(1)
	for _, l := range levels {
		d := math.Abs(price-l) / price
		if d < best {
			best = d
			level = l
		}
	}
	return level, best, true
}
