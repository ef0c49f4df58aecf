package models

import "time"

// IndicatorSnapshot holds derived indicator values computed from a candle
// window for one symbol/timeframe pair. Transient; recomputed per
// evaluation cycle and never persisted.
type IndicatorSnapshot struct {
	Symbol    string
	Timeframe string
	Price     float64 // latest close

	RSI float64

	MACD       float64
	MACDSignal float64
	MACDHist   float64

	BBUpper  float64
	BBMiddle float64
	BBLower  float64
	// BBPosition is the price location inside the band, 0 at the lower
	// band and 1 at the upper band.
	BBPosition float64

	StochK     float64
	StochD     float64
	PrevStochK float64
	PrevStochD float64

	// VolumeRatio is current volume over the trailing 20-period average.
	VolumeRatio float64

	Support    []float64
	Resistance []float64

	GeneratedAt time.Time
}
