package di

import (
	"fmt"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/handler/api"
	"TradePulse/internal/hub"
	mid "TradePulse/internal/middleware"
	"TradePulse/internal/registry"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/binance"
	"TradePulse/internal/services/signals"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/cache"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger builds the application logger from the environment.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client. Table schemas are
// owned by the individual stores, which run their own DDL.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSymbolStore creates the catalog store and its schema.
func ProvideSymbolStore(client *pkgch.Client, logger *applogger.Logger) (repository.SymbolStore, error) {
	return internalrepo.NewCHSymbolStore(client, logger)
}

// ProvideMarketDataStore creates the raw tick store and its schema.
func ProvideMarketDataStore(client *pkgch.Client, logger *applogger.Logger) (repository.MarketDataStore, error) {
	return internalrepo.NewCHMarketDataStore(client, "binance", logger)
}

// ProvideCandleStore creates the candle store, its schema, and the
// 1-minute rollup view.
func ProvideCandleStore(client *pkgch.Client, logger *applogger.Logger) (repository.CandleStore, error) {
	return internalrepo.NewCHCandleStore(client, logger)
}

// ProvideRegistry creates the in-memory symbol catalog service.
func ProvideRegistry(store repository.SymbolStore, cfg *config.Config, logger *applogger.Logger) *registry.Service {
	return registry.NewService(store, cfg.Registry.DefaultVenue, logger)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka-backed tick publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPricePublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTickPersister creates the consumer-side handler that lands
// ticks in the raw market-data store.
func ProvideTickPersister(store repository.MarketDataStore, cfg *config.Config, logger *applogger.Logger) pkgkafka.MessageHandler {
	return usecase.NewTickPersister(cfg.Kafka.Topic, store, logger)
}

// ProvideCache builds the shared cache: Redis-backed layered when
// enabled, process-local memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("tradepulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideHubRegistry creates the connection/group registry.
func ProvideHubRegistry() *hub.Registry {
	return hub.NewRegistry()
}

// ProvideBroadcaster creates the hub broadcaster.
func ProvideBroadcaster(reg *hub.Registry, logger *applogger.Logger, m repository.Metrics) *hub.Broadcaster {
	return hub.NewBroadcaster(reg, logger, m)
}

// ProvideMarketStream creates the Binance combined-stream client. The
// symbol set is installed by the collector before each connect.
func ProvideMarketStream(cfg *config.Config, logger *applogger.Logger) repository.MarketStream {
	return binance.New(cfg.Stream.WebSocketURL, nil, logger)
}

// ProvidePipeline builds the rate-limited stage between the stream and
// the tick bus.
func ProvidePipeline(pub repository.Publisher, cacheSvc cache.Service, m repository.Metrics, cfg *config.Config) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(usecase.NewTickProcessor(pub, cacheSvc), m,
		mid.WithMaxRPS(cfg.Stream.MaxRPS),
		mid.WithBufferSize(cfg.Stream.PipelineBuffer),
	)
}

// ProvideCollector creates the price collector.
func ProvideCollector(
	stream repository.MarketStream,
	pipeline *mid.RealtimePipeline,
	broadcaster *hub.Broadcaster,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.PriceCollector {
	cc := usecase.DefaultCollectorConfig()
	cc.HealthInterval = cfg.Stream.HealthInterval
	cc.KeepaliveInterval = cfg.Stream.KeepaliveInterval
	cc.Backoff = binance.Backoff{
		Min:    cfg.Stream.BackoffMin,
		Max:    cfg.Stream.BackoffMax,
		Factor: 2,
		Jitter: 0.2,
	}
	cc.MaxRetries = cfg.Stream.MaxRetries
	cc.RecoveryDelay = cfg.Stream.RecoveryDelay
	cc.SubscriberBuffer = cfg.Stream.SubscriberBuffer
	return usecase.NewPriceCollector(stream, pipeline, broadcaster, m, logger, cc)
}

// ProvideSignalSources builds the enabled source set from config.
func ProvideSignalSources(cfg *config.Config) []signals.Source {
	opts := signals.DefaultOptions()
	opts.RSIOversold = cfg.Signals.RSIOversold
	opts.RSIOverbought = cfg.Signals.RSIOverbought
	opts.BollingerProximity = cfg.Signals.BollingerProximity
	opts.SRProximity = cfg.Signals.SRProximity
	opts.VolumeBreakout = cfg.Signals.VolumeBreakout
	if len(cfg.Signals.EnabledSources) > 0 {
		opts.Enabled = make(map[models.SignalSource]bool, len(cfg.Signals.EnabledSources))
		for _, name := range cfg.Signals.EnabledSources {
			opts.Enabled[models.SignalSource(name)] = true
		}
	}
	return signals.NewSources(opts)
}

// ProvideSignalEngine creates the evaluation engine.
func ProvideSignalEngine(
	candles repository.CandleStore,
	sources []signals.Source,
	broadcaster *hub.Broadcaster,
	cacheSvc cache.Service,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.SignalEngine {
	ec := usecase.DefaultEngineConfig()
	ec.CandleWindow = cfg.Signals.CandleWindow
	ec.Concurrent = cfg.Signals.Concurrent
	ec.MinConfidence = cfg.Signals.MinConfidence
	ec.MinStrength = cfg.Signals.MinStrength
	ec.SignalTTL = cfg.Signals.TTL
	ec.MaxPerSymbol = cfg.Signals.MaxPerSymbol
	ec.DedupWindow = cfg.Signals.DedupWindow
	ec.DedupPriceDelta = cfg.Signals.DedupPriceDelta
	ec.ConsensusCacheTTL = cfg.Signals.ConsensusCacheTTL
	ec.Consensus.Threshold = cfg.Signals.ConsensusThreshold
	ec.Consensus.ConflictDiscount = cfg.Signals.ConflictDiscount
	ec.Consensus.DecayWindow = cfg.Signals.DecayWindow
	ec.Consensus.DecayFloor = cfg.Signals.DecayFloor
	ec.ScoreWeights = signals.ScoreWeights{
		Confidence:           cfg.Signals.ScoreWeights.Confidence,
		Strength:             cfg.Signals.ScoreWeights.Strength,
		Reliability:          cfg.Signals.ScoreWeights.Reliability,
		MarketCondition:      cfg.Signals.ScoreWeights.MarketCondition,
		SupportingIndicators: cfg.Signals.ScoreWeights.SupportingIndicators,
		VolumeConfirmation:   cfg.Signals.ScoreWeights.VolumeConfirmation,
	}
	return usecase.NewSignalEngine(candles, sources, broadcaster, cacheSvc, m, logger, ec)
}

// ProvideSymbolSync creates the catalog synchronization use case.
func ProvideSymbolSync(
	marketData repository.MarketDataStore,
	reg *registry.Service,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.SymbolSync {
	return usecase.NewSymbolSync(marketData, reg, m, logger)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	collector *usecase.PriceCollector,
	engine *usecase.SignalEngine,
	symSync *usecase.SymbolSync,
	reg *registry.Service,
	candles repository.CandleStore,
	hubReg *hub.Registry,
	logger *applogger.Logger,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewMarketHandler(collector, engine, symSync, reg, candles, hubReg, logger)
	h.SetSyncDefaults(cfg.Sync.BatchSize, cfg.Sync.Concurrency)
	return h
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	reg *registry.Service,
	collector *usecase.PriceCollector,
	pipeline *mid.RealtimePipeline,
	engine *usecase.SignalEngine,
	consumer *pkgkafka.Consumer,
	persister pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	hubReg *hub.Registry,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, logger, reg, collector, pipeline, engine,
		consumer, persister, producer, chClient, hubReg, handler)
}
