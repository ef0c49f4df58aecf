package signals

import (
	"fmt"
	"math"

	"TradePulse/internal/domain/models"
)

type macdSource struct{}

// NewMACDSource signals on MACD/signal-line crossovers confirmed by the
// histogram sign; the gap magnitude (in basis points of price) drives
// confidence and strength.
func NewMACDSource() Source { return &macdSource{} }

func (s *macdSource) Name() models.SignalSource { return models.SourceMACD }

func (s *macdSource) Evaluate(snap *models.IndicatorSnapshot, _ []models.Candle) (*models.TradingSignal, error) {
	if snap.Price <= 0 {
		return nil, nil
	}
	gapBps := math.Abs(snap.MACD-snap.MACDSignal) / snap.Price * 10000
	histBps := math.Abs(snap.MACDHist) / snap.Price * 10000

	switch {
	case snap.MACD > snap.MACDSignal && snap.MACDHist > 0:
		return newSignal(snap, s.Name(), models.SignalBuy,
			50+gapBps*4, 40+histBps*5,
			fmt.Sprintf("MACD %.4f above signal %.4f with positive histogram", snap.MACD, snap.MACDSignal)), nil
	case snap.MACD < snap.MACDSignal && snap.MACDHist < 0:
		return newSignal(snap, s.Name(), models.SignalSell,
			50+gapBps*4, 40+histBps*5,
			fmt.Sprintf("MACD %.4f below signal %.4f with negative histogram", snap.MACD, snap.MACDSignal)), nil
	default:
		return nil, nil
	}
}
