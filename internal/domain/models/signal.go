package models

import "time"

// SignalType is the directional call of a signal.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalHold       SignalType = "HOLD"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// Bullish reports whether the type is Buy or StrongBuy.
func (t SignalType) Bullish() bool { return t == SignalBuy || t == SignalStrongBuy }

// Bearish reports whether the type is Sell or StrongSell.
func (t SignalType) Bearish() bool { return t == SignalSell || t == SignalStrongSell }

// SignalSource identifies the indicator that produced a signal. The set
// is closed; orchestration dispatches through the Source interface so new
// members only need a new evaluator.
type SignalSource string

const (
	SourceRSI               SignalSource = "RSI"
	SourceMACD              SignalSource = "MACD"
	SourceBollinger         SignalSource = "BOLLINGER"
	SourceStochastic        SignalSource = "STOCHASTIC"
	SourceSupportResistance SignalSource = "SUPPORT_RESISTANCE"
	SourceVolume            SignalSource = "VOLUME"
	SourcePriceAction       SignalSource = "PRICE_ACTION"
)

// TradingSignal is one directional call produced by exactly one source.
// Confidence and strength are independently bounded to [0,100].
type TradingSignal struct {
	Symbol               string       `json:"symbol"`
	Timeframe            string       `json:"timeframe"`
	Type                 SignalType   `json:"type"`
	Source               SignalSource `json:"source"`
	Confidence           float64      `json:"confidence"`
	Strength             float64      `json:"strength"`
	Reliability          float64      `json:"reliability"`
	SupportingIndicators int          `json:"supporting_indicators"`
	MarketCondition      float64      `json:"market_condition"`
	Price                float64      `json:"price"`
	Rationale            string       `json:"rationale,omitempty"`
	GeneratedAt          time.Time    `json:"generated_at"`
	ExpiresAt            time.Time    `json:"expires_at"`
}

// Expired reports whether the signal is past its expiry at now.
func (s *TradingSignal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SignalScore is the weighted composite quality score of one signal.
type SignalScore struct {
	Score  float64 `json:"score"`
	Rating string  `json:"rating"` // Excellent, Strong, Good, Fair, Poor
}

// ConsensusSignal is the weighted aggregation of the current signal set
// for one symbol/timeframe. Recomputed on demand; never authoritative
// state.
type ConsensusSignal struct {
	Symbol        string     `json:"symbol"`
	Timeframe     string     `json:"timeframe"`
	Type          SignalType `json:"type"`
	Confidence    float64    `json:"confidence"`
	BullishCount  int        `json:"bullish_count"`
	BearishCount  int        `json:"bearish_count"`
	NeutralCount  int        `json:"neutral_count"`
	BullishWeight float64    `json:"bullish_weight"`
	BearishWeight float64    `json:"bearish_weight"`
	Rationale     string     `json:"rationale"`
	GeneratedAt   time.Time  `json:"generated_at"`
}
