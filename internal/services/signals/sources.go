package signals

import (
	"time"

	"TradePulse/internal/domain/models"
)

// Source produces zero-or-one signal from an indicator snapshot. Sources
// are stateless; some also inspect the raw candle window.
type Source interface {
	Name() models.SignalSource
	Evaluate(snap *models.IndicatorSnapshot, candles []models.Candle) (*models.TradingSignal, error)
}

// Options carries the per-source thresholds and enable flags.
type Options struct {
	RSIOversold        float64
	RSIOverbought      float64
	BollingerProximity float64 // fraction of band width, e.g. 0.1
	SRProximity        float64 // fraction of price, e.g. 0.01
	VolumeBreakout     float64 // volume-to-average ratio, e.g. 2.0

	// Enabled gates sources by name; a nil map enables everything.
	Enabled map[models.SignalSource]bool
}

// DefaultOptions returns the conventional thresholds.
func DefaultOptions() Options {
	return Options{
		RSIOversold:        30,
		RSIOverbought:      70,
		BollingerProximity: 0.1,
		SRProximity:        0.01,
		VolumeBreakout:     2.0,
	}
}

// NewSources builds the enabled source set in a stable order.
func NewSources(opts Options) []Source {
	all := []Source{
		NewRSISource(opts.RSIOversold, opts.RSIOverbought),
		NewMACDSource(),
		NewBollingerSource(opts.BollingerProximity),
		NewStochasticSource(),
		NewSupportResistanceSource(opts.SRProximity),
		NewVolumeSource(opts.VolumeBreakout),
		NewPriceActionSource(),
	}
	if opts.Enabled == nil {
		return all
	}
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if opts.Enabled[s.Name()] {
			out = append(out, s)
		}
	}
	return out
}

// reliability is a fixed per-source track-record score used in scoring
// and filtering.
var reliability = map[models.SignalSource]float64{
	models.SourceRSI:               75,
	models.SourceMACD:              70,
	models.SourceBollinger:         65,
	models.SourceStochastic:        65,
	models.SourceSupportResistance: 70,
	models.SourceVolume:            55,
	models.SourcePriceAction:       60,
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// newSignal assembles a signal with bounded confidence/strength and the
// source's fixed reliability. Expiry is stamped later by the engine.
func newSignal(snap *models.IndicatorSnapshot, src models.SignalSource, typ models.SignalType, confidence, strength float64, rationale string) *models.TradingSignal {
	return &models.TradingSignal{
		Symbol:               snap.Symbol,
		Timeframe:            snap.Timeframe,
		Type:                 typ,
		Source:               src,
		Confidence:           clamp(confidence, 0, 100),
		Strength:             clamp(strength, 0, 100),
		Reliability:          reliability[src],
		SupportingIndicators: 1,
		MarketCondition:      50,
		Price:                snap.Price,
		Rationale:            rationale,
		GeneratedAt:          time.Now(),
	}
}
