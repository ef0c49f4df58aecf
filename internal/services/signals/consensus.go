package signals

import (
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
)

// ConsensusOptions tune the weighted aggregation of a signal set.
type ConsensusOptions struct {
	// Threshold is the weight share one side must exceed to win, e.g.
	// 0.6 means 60% of the combined bullish+bearish weight.
	Threshold float64
	// ConflictDiscount multiplies the confidence when neither side
	// clears the threshold.
	ConflictDiscount float64
	// SourceWeights scales each source's contribution; missing entries
	// default to 1.
	SourceWeights map[models.SignalSource]float64
	// DecayWindow enables linear time decay of a signal's weight down to
	// DecayFloor over the window. Zero disables decay.
	DecayWindow time.Duration
	DecayFloor  float64
}

// DefaultConsensusOptions returns the standard aggregation tuning.
func DefaultConsensusOptions() ConsensusOptions {
	return ConsensusOptions{
		Threshold:        0.6,
		ConflictDiscount: 0.5,
		DecayWindow:      30 * time.Minute,
		DecayFloor:       0.1,
	}
}

// Consensus folds the current signal set for one symbol/timeframe into a
// single directional call. Expired signals are excluded. The fold is
// deterministic for a fixed input set and options.
func Consensus(symbol, timeframe string, sigs []models.TradingSignal, opts ConsensusOptions, now time.Time) *models.ConsensusSignal {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = 0.6
	}
	if opts.ConflictDiscount <= 0 || opts.ConflictDiscount > 1 {
		opts.ConflictDiscount = 0.5
	}
	if opts.DecayFloor <= 0 {
		opts.DecayFloor = 0.1
	}

	out := &models.ConsensusSignal{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Type:        models.SignalHold,
		GeneratedAt: now,
	}

	for _, s := range sigs {
		if s.Expired(now) {
			continue
		}
		w := s.Confidence * s.Strength * sourceWeight(opts, s.Source) * timeDecay(opts, now.Sub(s.GeneratedAt))
		switch {
		case s.Type.Bullish():
			out.BullishCount++
			out.BullishWeight += w
		case s.Type.Bearish():
			out.BearishCount++
			out.BearishWeight += w
		default:
			out.NeutralCount++
		}
	}

	combined := out.BullishWeight + out.BearishWeight
	if combined == 0 {
		out.Rationale = "no directional signals"
		return out
	}

	bullShare := out.BullishWeight / combined
	bearShare := out.BearishWeight / combined
	switch {
	case bullShare >= opts.Threshold:
		out.Type = models.SignalBuy
		if bullShare >= 0.85 {
			out.Type = models.SignalStrongBuy
		}
		out.Confidence = bullShare * 100
		out.Rationale = fmt.Sprintf("bullish consensus: %d bullish vs %d bearish signals, %.0f%% of weight", out.BullishCount, out.BearishCount, bullShare*100)
	case bearShare >= opts.Threshold:
		out.Type = models.SignalSell
		if bearShare >= 0.85 {
			out.Type = models.SignalStrongSell
		}
		out.Confidence = bearShare * 100
		out.Rationale = fmt.Sprintf("bearish consensus: %d bearish vs %d bullish signals, %.0f%% of weight", out.BearishCount, out.BullishCount, bearShare*100)
	default:
		larger := bullShare
		if bearShare > larger {
			larger = bearShare
		}
		out.Confidence = larger * 100 * opts.ConflictDiscount
		out.Rationale = fmt.Sprintf("conflicting signals: %d bullish vs %d bearish, no side holds %.0f%% of weight", out.BullishCount, out.BearishCount, opts.Threshold*100)
	}
	return out
}

func sourceWeight(opts ConsensusOptions, src models.SignalSource) float64 {
	if opts.SourceWeights == nil {
		return 1
	}
	if w, ok := opts.SourceWeights[src]; ok && w > 0 {
		return w
	}
	return 1
}

func timeDecay(opts ConsensusOptions, age time.Duration) float64 {
	if opts.DecayWindow <= 0 || age <= 0 {
		return 1
	}
	d := 1 - float64(age)/float64(opts.DecayWindow)
	if d < opts.DecayFloor {
		return opts.DecayFloor
	}
	return d
}
