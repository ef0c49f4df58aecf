package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/hub"
	"TradePulse/internal/middleware"
	"TradePulse/internal/registry"
	"TradePulse/internal/usecase"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
)

// App owns the whole runtime: symbol catalog warmup, the live price
// collector, the tick consumer, background evaluation loops, and the
// HTTP surface. Run blocks until the process is interrupted.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	registry *registry.Service

	collector *usecase.PriceCollector
	pipeline  *middleware.RealtimePipeline
	engine    *usecase.SignalEngine

	consumer  *pkgkafka.Consumer
	persister pkgkafka.MessageHandler
	producer  *pkgkafka.Producer

	chClient *pkgch.Client
	hubReg   *hub.Registry

	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New assembles the application from its wired dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	reg *registry.Service,
	collector *usecase.PriceCollector,
	pipeline *middleware.RealtimePipeline,
	engine *usecase.SignalEngine,
	consumer *pkgkafka.Consumer,
	persister pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	hubReg *hub.Registry,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		collector: collector,
		pipeline:  pipeline,
		engine:    engine,
		consumer:  consumer,
		persister: persister,
		producer:  producer,
		chClient:  chClient,
		hubReg:    hubReg,
		handler:   handler,
	}
}

// logPublisher feeds aggregated error logs onto a Kafka topic.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (p logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// Run starts all components and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.producer != nil {
		a.logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "tradepulse.logs",
			Publisher:      logPublisher{producer: a.producer},
		})
	}

	if err := a.registry.Load(ctx); err != nil {
		a.logger.Warn("app: symbol catalog warmup failed, starting empty", applogger.Error(err))
	}

	symbols := a.subscriptionSet()
	if len(symbols) > 0 {
		a.collector.Subscribe(symbols...)
	}

	a.pipeline.Start(ctx)

	if len(symbols) > 0 {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("app: collector start failed", applogger.Error(err))
			return err
		}
		a.logger.Info("app: collector started", applogger.Strings("symbols", symbols))
	} else {
		a.logger.Warn("app: no tracked or configured symbols, collector idle")
	}

	if a.consumer != nil && a.persister != nil {
		a.consumer.RegisterHandler(a.persister)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("app: kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("app: kafka consumer started", applogger.String("topic", a.persister.Topic()))
	}

	go a.evaluationLoop(ctx)
	go a.hubJanitor(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("app: http server start failed", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("app: shutdown signal received")
	cancel()
	return a.shutdown()
}

// subscriptionSet merges configured symbols with catalog-tracked ones.
func (a *App) subscriptionSet() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, dup := seen[s]; dup || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range a.cfg.Stream.Symbols {
		add(s)
	}
	for _, s := range a.registry.TrackedTickers() {
		add(s)
	}
	return out
}

// evaluationLoop periodically re-evaluates signals for every tracked
// symbol. Evaluation failures are logged and never stop the loop.
func (a *App) evaluationLoop(ctx context.Context) {
	interval := a.cfg.Signals.EvalInterval
	if interval <= 0 {
		return
	}
	tf := drepo.Timeframe(a.cfg.Signals.Timeframe)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range a.registry.TrackedTickers() {
				if _, err := a.engine.Evaluate(ctx, sym, tf); err != nil {
					a.logger.Warn("app: scheduled evaluation failed",
						applogger.String("symbol", sym), applogger.Error(err))
				}
			}
		}
	}
}

// hubJanitor evicts hub connections idle past the configured age.
func (a *App) hubJanitor(ctx context.Context) {
	interval := a.cfg.Hub.CleanupInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.hubReg.CleanupStaleConnections(a.cfg.Hub.StaleMaxAge); n > 0 {
				a.logger.Debug("app: cleaned stale hub connections", applogger.Int("count", n))
			}
		}
	}
}

// shutdown stops components in reverse start order.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("app: http shutdown error", applogger.Error(err))
		}
	}

	if err := a.collector.Stop(); err != nil {
		a.logger.Warn("app: collector stop error", applogger.Error(err))
	}
	a.pipeline.Stop()

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("app: kafka consumer stop error", applogger.Error(err))
		}
	}
	// flush aggregated logs while the producer is still open
	a.logger.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("app: kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("app: clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("app: shutdown complete")
	return nil
}
