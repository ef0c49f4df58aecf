package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/hub"
	"TradePulse/internal/services/indicators"
	"TradePulse/internal/services/signals"
	"TradePulse/pkg/cache"
	applogger "TradePulse/pkg/logger"
)

// EngineConfig tunes one evaluation cycle.
type EngineConfig struct {
	CandleWindow int // candles fetched per evaluation
	Concurrent   bool

	MinConfidence float64
	MinStrength   float64
	SignalTTL     time.Duration
	MaxPerSymbol  int

	DedupWindow     time.Duration
	DedupPriceDelta float64 // fraction of price

	ScoreWeights signals.ScoreWeights
	Consensus    signals.ConsensusOptions

	// ConsensusCacheTTL bounds how stale a cached consensus may be; the
	// cache is an optimization, never authoritative.
	ConsensusCacheTTL time.Duration
}

// DefaultEngineConfig returns the standard evaluation tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CandleWindow:      60,
		Concurrent:        true,
		MinConfidence:     50,
		MinStrength:       40,
		SignalTTL:         15 * time.Minute,
		MaxPerSymbol:      5,
		DedupWindow:       5 * time.Minute,
		DedupPriceDelta:   0.01,
		ScoreWeights:      signals.DefaultScoreWeights(),
		Consensus:         signals.DefaultConsensusOptions(),
		ConsensusCacheTTL: 30 * time.Second,
	}
}

// SignalEngine turns candle windows into filtered, scored, aggregated
// trading signals. Per-source faults are isolated; a whole-cycle fault
// degrades to an empty signal list.
type SignalEngine struct {
	candles     drepo.CandleStore
	sources     []signals.Source
	broadcaster *hub.Broadcaster
	cache       cache.Service
	metrics     drepo.Metrics
	logger      *applogger.Logger
	cfg         EngineConfig

	mu     sync.RWMutex
	active map[string][]models.TradingSignal // symbol|tf -> current set
}

// NewSignalEngine wires the engine. broadcaster and cache may be nil.
func NewSignalEngine(
	candles drepo.CandleStore,
	sources []signals.Source,
	broadcaster *hub.Broadcaster,
	cacheSvc cache.Service,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	cfg EngineConfig,
) *SignalEngine {
	if cfg.CandleWindow <= 0 {
		cfg.CandleWindow = 60
	}
	if cfg.MaxPerSymbol <= 0 {
		cfg.MaxPerSymbol = 5
	}
	if cfg.SignalTTL <= 0 {
		cfg.SignalTTL = 15 * time.Minute
	}
	return &SignalEngine{
		candles:     candles,
		sources:     sources,
		broadcaster: broadcaster,
		cache:       cacheSvc,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		active:      make(map[string][]models.TradingSignal),
	}
}

// Evaluate runs one cycle for a symbol/timeframe: fetch the candle
// window, compute the indicator snapshot, fan sources out, then filter,
// stamp expiry, and cap the survivors. The resulting set replaces the
// symbol's active signals and is broadcast.
func (e *SignalEngine) Evaluate(ctx context.Context, symbol string, tf drepo.Timeframe) (out []models.TradingSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: evaluation panic", applogger.Any("panic", r),
				applogger.String("symbol", symbol))
			e.metrics.RecordError("engine_panic")
			out, err = nil, nil
		}
	}()

	start := time.Now()
	candles, err := e.candles.GetLatestNCandles(ctx, symbol, e.cfg.CandleWindow, tf)
	if err != nil {
		return nil, fmt.Errorf("engine candles %s: %w", symbol, err)
	}
	snap, err := indicators.Compute(symbol, string(tf), candles)
	if err != nil {
		e.logger.Debug("engine: window too small", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, nil
	}

	raw := e.collect(snap, candles)

	filtered := signals.Filter(raw, signals.FilterOptions{
		MinConfidence:   e.cfg.MinConfidence,
		DedupWindow:     e.cfg.DedupWindow,
		DedupPriceDelta: e.cfg.DedupPriceDelta,
		Now:             snap.GeneratedAt,
	})
	kept := filtered[:0]
	for _, s := range filtered {
		if s.Strength < e.cfg.MinStrength {
			continue
		}
		s.ExpiresAt = s.GeneratedAt.Add(e.cfg.SignalTTL)
		kept = append(kept, s)
	}
	out = capSignals(kept, e.cfg.MaxPerSymbol)

	key := signalKey(symbol, tf)
	e.mu.Lock()
	e.active[key] = out
	e.mu.Unlock()

	for _, s := range out {
		e.metrics.RecordSignal(string(s.Source), string(s.Type))
	}
	e.metrics.RecordLatency("engine_evaluate", time.Since(start).Seconds())
	if e.broadcaster != nil && len(out) > 0 {
		e.broadcaster.Publish(hub.HubSignals, signalGroup(symbol, tf), out)
	}
	if e.cache != nil {
		// new signals invalidate any cached consensus
		_ = e.cache.Delete(ctx, consensusCacheKey(symbol, tf))
	}
	return out, nil
}

// collect fans the sources out, isolating each source's faults.
func (e *SignalEngine) collect(snap *models.IndicatorSnapshot, candles []models.Candle) []models.TradingSignal {
	results := make([]*models.TradingSignal, len(e.sources))

	eval := func(i int, src signals.Source) {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("engine: source panic",
					applogger.String("source", string(src.Name())),
					applogger.Any("panic", r))
				e.metrics.RecordError("source_panic")
			}
		}()
		sig, err := src.Evaluate(snap, candles)
		if err != nil {
			e.logger.Warn("engine: source failed",
				applogger.String("source", string(src.Name())),
				applogger.Error(err))
			e.metrics.RecordError("source_" + string(src.Name()))
			return
		}
		results[i] = sig
	}

	if e.cfg.Concurrent {
		var wg sync.WaitGroup
		for i, src := range e.sources {
			wg.Add(1)
			go func(i int, src signals.Source) {
				defer wg.Done()
				eval(i, src)
			}(i, src)
		}
		wg.Wait()
	} else {
		for i, src := range e.sources {
			eval(i, src)
		}
	}

	// keep source order so downstream capping is stable
	out := make([]models.TradingSignal, 0, len(results))
	for _, sig := range results {
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

// ActiveSignals returns the current unexpired set for a symbol/timeframe.
func (e *SignalEngine) ActiveSignals(symbol string, tf drepo.Timeframe) []models.TradingSignal {
	e.mu.RLock()
	set := e.active[signalKey(symbol, tf)]
	e.mu.RUnlock()

	now := time.Now()
	out := make([]models.TradingSignal, 0, len(set))
	for _, s := range set {
		if !s.Expired(now) {
			out = append(out, s)
		}
	}
	return out
}

// Consensus folds the symbol's active signals into one directional call.
// A short-TTL cache absorbs repeated queries; the fold itself stays the
// source of truth.
func (e *SignalEngine) Consensus(ctx context.Context, symbol string, tf drepo.Timeframe) (*models.ConsensusSignal, error) {
	key := consensusCacheKey(symbol, tf)
	if e.cache != nil {
		// values cross the cache as JSON strings so every backend
		// round-trips them identically
		var raw string
		if err := e.cache.Get(ctx, key, &raw); err == nil && raw != "" {
			var cached models.ConsensusSignal
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Symbol != "" {
				return &cached, nil
			}
		}
	}

	cons := signals.Consensus(symbol, string(tf), e.ActiveSignals(symbol, tf), e.cfg.Consensus, time.Now())

	if e.cache != nil && e.cfg.ConsensusCacheTTL > 0 {
		if b, err := json.Marshal(cons); err == nil {
			if err := e.cache.Set(ctx, key, string(b), e.cfg.ConsensusCacheTTL); err != nil {
				e.logger.Debug("engine: consensus cache write failed", applogger.Error(err))
			}
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.Publish(hub.HubSignals, signalGroup(symbol, tf), cons)
	}
	return cons, nil
}

// Score computes the composite quality score for one signal.
func (e *SignalEngine) Score(sig models.TradingSignal) models.SignalScore {
	return signals.ScoreSignal(sig, e.cfg.ScoreWeights, 1)
}

// capSignals keeps the top n by confidence then strength, preserving
// the survivors' original generation order.
func capSignals(in []models.TradingSignal, n int) []models.TradingSignal {
	if len(in) <= n {
		return in
	}
	type ranked struct {
		idx int
		sig models.TradingSignal
	}
	rs := make([]ranked, len(in))
	for i, s := range in {
		rs[i] = ranked{idx: i, sig: s}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].sig.Confidence != rs[j].sig.Confidence {
			return rs[i].sig.Confidence > rs[j].sig.Confidence
		}
		return rs[i].sig.Strength > rs[j].sig.Strength
	})
	rs = rs[:n]
	sort.Slice(rs, func(i, j int) bool { return rs[i].idx < rs[j].idx })
	out := make([]models.TradingSignal, n)
	for i, r := range rs {
		out[i] = r.sig
	}
	return out
}

func signalKey(symbol string, tf drepo.Timeframe) string {
	return symbol + "|" + string(tf)
}

func signalGroup(symbol string, tf drepo.Timeframe) string {
	return fmt.Sprintf("signals:%s:%s", symbol, tf)
}

func consensusCacheKey(symbol string, tf drepo.Timeframe) string {
	return fmt.Sprintf("consensus:%s:%s", symbol, tf)
}
