package signals

import (
	"math"
	"time"

	"TradePulse/internal/domain/models"
)

// FilterOptions narrows a signal set. Zero values disable the
// corresponding criterion.
type FilterOptions struct {
	MinConfidence  float64
	MinReliability float64

	AllowedTypes    []models.SignalType
	ExcludedTypes   []models.SignalType
	AllowedSources  []models.SignalSource
	ExcludedSources []models.SignalSource

	MaxAge time.Duration

	// Dedup: two signals for the same symbol/timeframe/type generated
	// within DedupWindow whose prices differ by less than DedupPriceDelta
	// (fraction of price) are duplicates; the higher-confidence one
	// survives, keeping the earlier one's position.
	DedupWindow     time.Duration
	DedupPriceDelta float64

	Now time.Time
}

// Filter applies the options preserving the input's relative order among
// survivors.
func Filter(in []models.TradingSignal, opts FilterOptions) []models.TradingSignal {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := make([]models.TradingSignal, 0, len(in))
	for _, s := range in {
		if s.Confidence < opts.MinConfidence || s.Reliability < opts.MinReliability {
			continue
		}
		if len(opts.AllowedTypes) > 0 && !containsType(opts.AllowedTypes, s.Type) {
			continue
		}
		if containsType(opts.ExcludedTypes, s.Type) {
			continue
		}
		if len(opts.AllowedSources) > 0 && !containsSource(opts.AllowedSources, s.Source) {
			continue
		}
		if containsSource(opts.ExcludedSources, s.Source) {
			continue
		}
		if opts.MaxAge > 0 && now.Sub(s.GeneratedAt) > opts.MaxAge {
			continue
		}

		if opts.DedupWindow > 0 {
			if i := duplicateOf(out, s, opts); i >= 0 {
				if s.Confidence > out[i].Confidence {
					out[i] = s
				}
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func duplicateOf(kept []models.TradingSignal, s models.TradingSignal, opts FilterOptions) int {
	for i, k := range kept {
		if k.Symbol != s.Symbol || k.Timeframe != s.Timeframe || k.Type != s.Type {
			continue
		}
		dt := s.GeneratedAt.Sub(k.GeneratedAt)
		if dt < 0 {
			dt = -dt
		}
		if dt > opts.DedupWindow {
			continue
		}
		if opts.DedupPriceDelta > 0 && k.Price > 0 {
			if math.Abs(s.Price-k.Price)/k.Price >= opts.DedupPriceDelta {
				continue
			}
		}
		return i
	}
	return -1
}

func containsType(list []models.SignalType, t models.SignalType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsSource(list []models.SignalSource, s models.SignalSource) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
