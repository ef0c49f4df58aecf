package models

import "time"

// PriceUpdate is an immutable point-in-time observation parsed from one
// exchange tick. Timestamp is the wall-clock receipt time.
type PriceUpdate struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PercentChange float64   `json:"percent_change"`
	Volume        float64   `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// Candle represents an OHLCV bucket used to build indicator snapshots.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
