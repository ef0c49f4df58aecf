package signals

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

type rsiSource struct {
	oversold   float64
	overbought float64
}

// NewRSISource signals on oversold/overbought RSI readings; confidence
// and strength scale with distance past the threshold.
func NewRSISource(oversold, overbought float64) Source {
	if oversold <= 0 {
		oversold = 30
	}
	if overbought <= 0 {
		overbought = 70
	}
	return &rsiSource{oversold: oversold, overbought: overbought}
}

func (s *rsiSource) Name() models.SignalSource { return models.SourceRSI }

func (s *rsiSource) Evaluate(snap *models.IndicatorSnapshot, _ []models.Candle) (*models.TradingSignal, error) {
	switch {
	case snap.RSI < s.oversold:
		dist := s.oversold - snap.RSI
		typ := models.SignalBuy
		if dist >= 15 {
			typ = models.SignalStrongBuy
		}
		return newSignal(snap, s.Name(), typ,
			50+dist*2.5, 40+dist*3,
			fmt.Sprintf("RSI %.1f below oversold %.0f", snap.RSI, s.oversold)), nil
	case snap.RSI > s.overbought:
		dist := snap.RSI - s.overbought
		typ := models.SignalSell
		if dist >= 15 {
			typ = models.SignalStrongSell
		}
		return newSignal(snap, s.Name(), typ,
			50+dist*2.5, 40+dist*3,
			fmt.Sprintf("RSI %.1f above overbought %.0f", snap.RSI, s.overbought)), nil
	default:
		return nil, nil
	}
}
