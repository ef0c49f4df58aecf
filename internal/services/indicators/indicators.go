package indicators

import (
	"fmt"
	"math"
	"time"

	"TradePulse/internal/domain/models"
)

const (
	rsiPeriod        = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignalPeriod = 9
	bbPeriod         = 20
	bbStdDevs        = 2.0
	stochPeriod      = 14
	stochSmooth      = 3
	volumePeriod     = 20
)

// Compute builds an IndicatorSnapshot from an ascending candle window.
// The window must cover the slowest indicator (MACD slow EMA plus its
// signal line).
func Compute(symbol, timeframe string, candles []models.Candle) (*models.IndicatorSnapshot, error) {
	if len(candles) < macdSlow+macdSignalPeriod {
		return nil, fmt.Errorf("indicators: need at least %d candles, got %d", macdSlow+macdSignalPeriod, len(candles))
	}

	closes := make([]float64, len(candles))
	vols := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		vols[i] = c.Volume
	}

	macd, macdSig, macdHist := MACD(closes)
	upper, middle, lower := Bollinger(closes, bbPeriod, bbStdDevs)
	k, d := Stochastic(candles, stochPeriod, stochSmooth)
	prevK, prevD := Stochastic(candles[:len(candles)-1], stochPeriod, stochSmooth)
	support, resistance := SupportResistance(candles)

	price := closes[len(closes)-1]
	snap := &models.IndicatorSnapshot{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Price:       price,
		RSI:         RSI(closes, rsiPeriod),
		MACD:        macd,
		MACDSignal:  macdSig,
		MACDHist:    macdHist,
		BBUpper:     upper,
		BBMiddle:    middle,
		BBLower:     lower,
		StochK:      k,
		StochD:      d,
		PrevStochK:  prevK,
		PrevStochD:  prevD,
		VolumeRatio: VolumeRatio(vols, volumePeriod),
		Support:     support,
		Resistance:  resistance,
		GeneratedAt: time.Now(),
	}
	if upper > lower {
		snap.BBPosition = (price - lower) / (upper - lower)
	}
	return snap, nil
}

// RSI computes Wilder's relative strength index over the final value of
// the series.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA computes the exponential moving average series for the given period.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACD returns the latest MACD line, signal line, and histogram using the
// standard 12/26/9 parameterization.
func MACD(closes []float64) (macd, signal, hist float64) {
	fast := EMA(closes, macdFast)
	slow := EMA(closes, macdSlow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	sig := EMA(line, macdSignalPeriod)
	last := len(closes) - 1
	return line[last], sig[last], line[last] - sig[last]
}

// Bollinger returns the latest upper, middle and lower band for the given
// period and standard-deviation multiple.
func Bollinger(closes []float64, period int, stdDevs float64) (upper, middle, lower float64) {
	if len(closes) < period {
		period = len(closes)
	}
	window := closes[len(closes)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	middle = sum / float64(period)
	var variance float64
	for _, v := range window {
		variance += (v - middle) * (v - middle)
	}
	sd := math.Sqrt(variance / float64(period))
	return middle + stdDevs*sd, middle, middle - stdDevs*sd
}

// Stochastic returns the latest smoothed %K and %D. The %D average
// reaches back smooth-1 smoothed %K values, each of which reaches back
// smooth-1 raw %K values, so the window must cover
// period + 2*(smooth-1) candles.
func Stochastic(candles []models.Candle, period, smooth int) (k, d float64) {
	if len(candles) < period+2*smooth-2 {
		return 50, 50
	}
	rawK := func(end int) float64 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := end - period + 1; i <= end; i++ {
			lo = math.Min(lo, candles[i].Low)
			hi = math.Max(hi, candles[i].High)
		}
		if hi == lo {
			return 50
		}
		return (candles[end].Close - lo) / (hi - lo) * 100
	}
	// %K smoothed over `smooth` raw values; %D is the average of the last
	// `smooth` smoothed %K values.
	smoothedK := func(end int) float64 {
		var sum float64
		for i := 0; i < smooth; i++ {
			sum += rawK(end - i)
		}
		return sum / float64(smooth)
	}
	last := len(candles) - 1
	k = smoothedK(last)
	var sum float64
	for i := 0; i < smooth; i++ {
		sum += smoothedK(last - i)
	}
	return k, sum / float64(smooth)
}

// VolumeRatio returns current volume over the trailing average of the
// previous `period` bars.
func VolumeRatio(vols []float64, period int) float64 {
	if len(vols) < period+1 {
		return 1
	}
	var sum float64
	for i := len(vols) - period - 1; i < len(vols)-1; i++ {
		sum += vols[i]
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 1
	}
	return vols[len(vols)-1] / avg
}

// SupportResistance detects local swing lows and highs over the window.
// A pivot is a candle whose low (high) is the extreme of its two
// neighbors on each side.
func SupportResistance(candles []models.Candle) (support, resistance []float64) {
	for i := 2; i < len(candles)-2; i++ {
		c := candles[i]
		if c.Low < candles[i-1].Low && c.Low < candles[i-2].Low &&
			c.Low < candles[i+1].Low && c.Low < candles[i+2].Low {
			support = append(support, c.Low)
		}
		if c.High > candles[i-1].High && c.High > candles[i-2].High &&
			c.High > candles[i+1].High && c.High > candles[i+2].High {
			resistance = append(resistance, c.High)
		}
	}
	return support, resistance
}
