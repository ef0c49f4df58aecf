//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Stores and publishers
		ProvideSymbolStore,
		ProvideMarketDataStore,
		ProvideCandleStore,
		ProvidePublisher,
		ProvideTickPersister,

		// Domain services
		ProvideRegistry,
		ProvideHubRegistry,
		ProvideBroadcaster,
		ProvideMarketStream,
		ProvidePipeline,
		ProvideCollector,
		ProvideSignalSources,
		ProvideSignalEngine,
		ProvideSymbolSync,

		// HTTP surface and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
