package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/hub"
	"TradePulse/internal/middleware"
	"TradePulse/internal/service/binance"
	applogger "TradePulse/pkg/logger"
)

// CollectorConfig bounds the reconnect and supervision behavior.
type CollectorConfig struct {
	HealthInterval    time.Duration // supervisor poll cadence
	KeepaliveInterval time.Duration // keepalive probe cadence
	Backoff           binance.Backoff
	MaxRetries        int           // attempts before the long recovery delay
	RecoveryDelay     time.Duration // minutes-scale pause after retries exhaust
	SubscriberBuffer  int
	AssetClass        string // group suffix for price broadcasts
}

// DefaultCollectorConfig matches the documented supervision cadence.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		HealthInterval:    5 * time.Second,
		KeepaliveInterval: 30 * time.Second,
		Backoff:           binance.DefaultBackoff(),
		MaxRetries:        10,
		RecoveryDelay:     5 * time.Minute,
		SubscriberBuffer:  256,
		AssetClass:        "CRYPTO",
	}
}

type updateSubscriber struct {
	ch chan *models.PriceUpdate
}

// PriceCollector owns the single upstream exchange connection and
// converts raw ticks into the in-process price-update stream. Parsed
// updates land in the latest-price table, the realtime pipeline (and
// from there the tick bus), the hub broadcaster, and any direct
// channel subscribers.
type PriceCollector struct {
	stream      drepo.MarketStream
	pipeline    *middleware.RealtimePipeline
	broadcaster *hub.Broadcaster
	metrics     drepo.Metrics
	logger      *applogger.Logger
	cfg         CollectorConfig

	latest sync.Map // symbol -> *models.PriceUpdate

	mu        sync.Mutex
	symbols   map[string]struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	running   bool
	subs      map[int]*updateSubscriber
	nextSubID int
}

// NewPriceCollector wires the collector. broadcaster and pipeline may be
// nil in tests.
func NewPriceCollector(
	stream drepo.MarketStream,
	pipeline *middleware.RealtimePipeline,
	broadcaster *hub.Broadcaster,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	cfg CollectorConfig,
) *PriceCollector {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 5 * time.Second
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = 30 * time.Second
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 256
	}
	if cfg.AssetClass == "" {
		cfg.AssetClass = "CRYPTO"
	}
	return &PriceCollector{
		stream:      stream,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		symbols:     make(map[string]struct{}),
		subs:        make(map[int]*updateSubscriber),
	}
}

// Subscribe merges symbols into the tracked set. Raw inputs are
// normalized; invalid ones are logged and skipped. If the collector is
// running, a reconnect is triggered so the upstream subscription list
// is refreshed.
func (c *PriceCollector) Subscribe(symbols ...string) {
	c.mu.Lock()
	changed := false
	for _, raw := range symbols {
		norm, ok := binance.NormalizeSymbol(raw)
		if !ok {
			c.logger.Warn("collector: rejected symbol", applogger.String("symbol", raw))
			continue
		}
		if _, exists := c.symbols[norm]; !exists {
			c.symbols[norm] = struct{}{}
			changed = true
		}
	}
	running := c.running
	if changed {
		c.stream.SetSymbols(c.symbolList())
	}
	c.mu.Unlock()

	if changed && running {
		// refresh the upstream subscription list; the run loop reconnects
		if err := c.stream.Close(); err != nil {
			c.logger.Warn("collector: close for resubscribe", applogger.Error(err))
		}
	}
}

// Symbols returns the current subscription set.
func (c *PriceCollector) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbolList()
}

func (c *PriceCollector) symbolList() []string {
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	return out
}

// Start launches the connection loop and its supervisor. Calling Start
// while running tears the previous session down first.
func (c *PriceCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	if len(c.symbols) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("collector: no symbols subscribed")
	}
	if c.running {
		cancel, done := c.cancel, c.done
		c.running = false
		c.mu.Unlock()
		cancel()
		<-done
		c.mu.Lock()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.running = true
	c.stream.SetSymbols(c.symbolList())
	c.mu.Unlock()

	if c.pipeline != nil {
		c.pipeline.Start(runCtx)
	}
	go c.run(runCtx, done)
	c.logger.Info("collector: started", applogger.Int("symbols", len(c.Symbols())))
	return nil
}

// Stop cancels the connection loop and supervisor and closes the
// socket.
func (c *PriceCollector) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	if c.pipeline != nil {
		c.pipeline.Stop()
	}
	c.logger.Info("collector: stopped")
	return nil
}

// run owns reconnection: each iteration is one connection session. On
// session loss it retries with capped jittered backoff; after
// MaxRetries it pauses for the long recovery delay and starts over
// rather than giving up.
func (c *PriceCollector) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() { _ = c.stream.Close() }()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.stream.Connect(ctx); err != nil {
			attempt++
			c.metrics.RecordError("stream_connect")
			if c.cfg.MaxRetries > 0 && attempt >= c.cfg.MaxRetries {
				c.logger.Error("collector: retries exhausted, entering recovery delay",
					applogger.Int("attempts", attempt),
					applogger.Duration("delay", c.cfg.RecoveryDelay))
				attempt = 0
				if !sleepCtx(ctx, c.cfg.RecoveryDelay) {
					return
				}
				continue
			}
			wait := c.cfg.Backoff.Next(attempt)
			c.logger.Warn("collector: connect failed, backing off",
				applogger.Error(err),
				applogger.Int("attempt", attempt),
				applogger.Duration("wait", wait))
			if !sleepCtx(ctx, wait) {
				return
			}
			continue
		}
		if attempt > 0 {
			c.metrics.RecordReconnect()
		}
		attempt = 0

		c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		attempt++
		wait := c.cfg.Backoff.Next(attempt)
		c.logger.Warn("collector: session ended, reconnecting",
			applogger.Duration("wait", wait))
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

// session consumes one connection until it dies. A supervisor goroutine
// probes health every HealthInterval and sends a keepalive every
// KeepaliveInterval; any failure closes the connection so the read
// loop unblocks and the session returns.
func (c *PriceCollector) session(ctx context.Context) {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.supervise(sessCtx)

	updates, errs := c.stream.Read(sessCtx)
	for {
		select {
		case <-sessCtx.Done():
			return
		case err := <-errs:
			if err != nil {
				c.logger.Warn("collector: stream error", applogger.Error(err))
				c.metrics.RecordError("stream_read")
			}
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			c.handle(sessCtx, u)
		}
	}
}

func (c *PriceCollector) supervise(ctx context.Context) {
	health := time.NewTicker(c.cfg.HealthInterval)
	keepalive := time.NewTicker(c.cfg.KeepaliveInterval)
	defer health.Stop()
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-health.C:
			if !c.stream.IsConnected() {
				c.logger.Warn("collector: health check found dead connection")
				_ = c.stream.Close()
				return
			}
		case <-keepalive.C:
			if err := c.stream.Ping(); err != nil {
				c.logger.Warn("collector: keepalive failed", applogger.Error(err))
				c.metrics.RecordError("stream_keepalive")
				_ = c.stream.Close()
				return
			}
		}
	}
}

// handle distributes one parsed update to the latest-price table, the
// pipeline, the hub, and channel subscribers.
func (c *PriceCollector) handle(ctx context.Context, u *models.PriceUpdate) {
	c.latest.Store(u.Symbol, u)
	c.metrics.RecordLastPrice(u.Symbol, u.Price)
	c.metrics.RecordMessageSent("stream", u.Symbol)

	if c.pipeline != nil {
		if err := c.pipeline.Process(ctx, u); err != nil {
			c.logger.Debug("collector: pipeline deferred update", applogger.Error(err))
		}
	}
	if c.broadcaster != nil {
		c.broadcaster.Publish(hub.HubMarketData, "prices:"+strings.ToUpper(c.cfg.AssetClass), u)
	}

	c.mu.Lock()
	for _, sub := range c.subs {
		select {
		case sub.ch <- u:
		default:
			// drop-oldest for slow subscribers
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- u:
			default:
			}
		}
	}
	c.mu.Unlock()
}

// LatestPrice reads the latest-value cache; non-blocking.
func (c *PriceCollector) LatestPrice(symbol string) (*models.PriceUpdate, bool) {
	v, ok := c.latest.Load(strings.ToUpper(symbol))
	if !ok {
		return nil, false
	}
	return v.(*models.PriceUpdate), true
}

// AllLatestPrices snapshots the latest-value cache.
func (c *PriceCollector) AllLatestPrices() map[string]*models.PriceUpdate {
	out := make(map[string]*models.PriceUpdate)
	c.latest.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(*models.PriceUpdate)
		return true
	})
	return out
}

// SubscribeUpdates returns a channel receiving every parsed update and
// a cancel func. Slow consumers lose the oldest buffered update.
func (c *PriceCollector) SubscribeUpdates(buffer int) (<-chan *models.PriceUpdate, func()) {
	if buffer <= 0 {
		buffer = c.cfg.SubscriberBuffer
	}
	sub := &updateSubscriber{ch: make(chan *models.PriceUpdate, buffer)}

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = sub
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if cur, ok := c.subs[id]; ok && cur == sub {
			delete(c.subs, id)
			close(sub.ch)
		}
		c.mu.Unlock()
	}
	return sub.ch, cancel
}

// IsRunning reports the collector state.
func (c *PriceCollector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
