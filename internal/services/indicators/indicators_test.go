package indicators

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

func makeCandles(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Bucket: ts.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			Open:   c * 0.999,
			High:   c * 1.002,
			Low:    c * 0.998,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := RSI(closes, 14); got != 100 {
		t.Fatalf("expected RSI 100 on monotone gains, got %v", got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if got := RSI([]float64{1, 2, 3}, 14); got != 50 {
		t.Fatalf("expected neutral RSI, got %v", got)
	}
}

func TestRSIBounded(t *testing.T) {
	closes := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.0, 45.6, 46.2, 46.2, 46.0}
	got := RSI(closes, 14)
	if got < 0 || got > 100 {
		t.Fatalf("RSI out of range: %v", got)
	}
	if got < 50 {
		t.Fatalf("expected bullish RSI on mostly-up series, got %v", got)
	}
}

func TestEMAConverges(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = 50
	}
	ema := EMA(values, 12)
	if math.Abs(ema[len(ema)-1]-50) > 1e-9 {
		t.Fatalf("EMA of constant series should be the constant, got %v", ema[len(ema)-1])
	}
}

func TestBollingerOrdering(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 10, 11, 13, 9, 10, 12, 11, 10, 12, 9, 11, 10, 12, 11, 10, 13}
	upper, middle, lower := Bollinger(closes, 20, 2.0)
	if !(lower < middle && middle < upper) {
		t.Fatalf("expected lower < middle < upper, got %v %v %v", lower, middle, upper)
	}
}

func TestStochasticBounds(t *testing.T) {
	candles := makeCandles([]float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 12, 11, 10, 11, 12, 13, 14, 13, 12, 11})
	k, d := Stochastic(candles, 14, 3)
	for _, v := range []float64{k, d} {
		if v < 0 || v > 100 {
			t.Fatalf("stochastic out of range: k=%v d=%v", k, d)
		}
	}
}

func TestStochasticMinimalWindow(t *testing.T) {
	// %D needs period + 2*(smooth-1) candles; anything shorter must
	// return neutral instead of reading before the window.
	for n := 0; n < 18; n++ {
		k, d := Stochastic(make([]models.Candle, n), 14, 3)
		if k != 50 || d != 50 {
			t.Fatalf("expected neutral values for %d candles, got k=%v d=%v", n, k, d)
		}
	}
	closes := make([]float64, 18)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	k, d := Stochastic(makeCandles(closes), 14, 3)
	if k < 0 || k > 100 || d < 0 || d > 100 {
		t.Fatalf("minimal window out of range: k=%v d=%v", k, d)
	}
}

func TestVolumeRatioSpike(t *testing.T) {
	vols := make([]float64, 21)
	for i := range vols {
		vols[i] = 100
	}
	vols[20] = 300
	if got := VolumeRatio(vols, 20); math.Abs(got-3) > 1e-9 {
		t.Fatalf("expected ratio 3, got %v", got)
	}
}

func TestSupportResistancePivots(t *testing.T) {
	closes := []float64{10, 9, 8, 9, 10, 11, 12, 11, 10, 9, 8, 9, 10}
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Open: c, High: c + 0.1, Low: c - 0.1, Close: c}
	}
	support, resistance := SupportResistance(candles)
	if len(support) == 0 {
		t.Fatalf("expected a swing low around the dip")
	}
	if len(resistance) == 0 {
		t.Fatalf("expected a swing high around the peak")
	}
}

func TestComputeRequiresWindow(t *testing.T) {
	if _, err := Compute("BTCUSDT", "1h", makeCandles([]float64{1, 2, 3})); err == nil {
		t.Fatalf("expected error for short window")
	}
}

func TestComputeSnapshot(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/5)
	}
	snap, err := Compute("BTCUSDT", "1h", makeCandles(closes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Symbol != "BTCUSDT" || snap.Timeframe != "1h" {
		t.Fatalf("identity not carried: %+v", snap)
	}
	if snap.Price != closes[len(closes)-1] {
		t.Fatalf("price should be latest close")
	}
	if snap.BBPosition < 0 || snap.BBPosition > 1.5 {
		t.Fatalf("implausible band position %v", snap.BBPosition)
	}
}
