package signals

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

type stochasticSource struct{}

// NewStochasticSource signals %K/%D crossovers inside the oversold (<20)
// and overbought (>80) zones.
func NewStochasticSource() Source { return &stochasticSource{} }

func (s *stochasticSource) Name() models.SignalSource { return models.SourceStochastic }

func (s *stochasticSource) Evaluate(snap *models.IndicatorSnapshot, _ []models.Candle) (*models.TradingSignal, error) {
	crossedUp := snap.StochK > snap.StochD && snap.PrevStochK <= snap.PrevStochD
	crossedDown := snap.StochK < snap.StochD && snap.PrevStochK >= snap.PrevStochD

	switch {
	case snap.StochK < 20 && snap.StochD < 20 && crossedUp:
		depth := 20 - snap.StochK
		return newSignal(snap, s.Name(), models.SignalBuy,
			55+depth*2, 50+depth*2,
			fmt.Sprintf("stochastic %%K %.1f crossed above %%D %.1f in oversold zone", snap.StochK, snap.StochD)), nil
	case snap.StochK > 80 && snap.StochD > 80 && crossedDown:
		depth := snap.StochK - 80
		return newSignal(snap, s.Name(), models.SignalSell,
			55+depth*2, 50+depth*2,
			fmt.Sprintf("stochastic %%K %.1f crossed below %%D %.1f in overbought zone", snap.StochK, snap.StochD)), nil
	default:
		return nil, nil
	}
}
