//go:build wireinject
// +build wireinject

package di

import (
	domrepo "ExtremeScan/internal/domain/repository"
	internalrepo "ExtremeScan/internal/repository"
	"ExtremeScan/pkg/config"
	"ExtremeScan/pkg/metrics"
	"ExtremeScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(domrepo.Metrics), new(*metrics.Recorder)),

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,

		// Repositories
		ProvideMarketDataFetcher,
		ProvideSignalStore,
		wire.Bind(new(domrepo.SignalStore), new(*internalrepo.MemorySignalStore)),
		ProvideTrendlineCache,
		wire.Bind(new(domrepo.TrendlineCache), new(*internalrepo.CachedTrendlines)),

		// Use cases
		ProvideStrategyCombiner,
		ProvideSignalAgent,
		ProvideHub,
		ProvideSignalSinks,
		ProvideSignalPipeline,
		ProvideBackgroundService,
		ProvideServiceConfigPatch,

		// Transport
		ProvideKafkaConsumer,
		ProvideKafkaStatusHandler,
		ProvideRateLimiter,
		ProvideAgentHandler,
		ProvideHealthChecks,
		ProvideHTTPServer,

		// Application server
		ProvideClosers,
		server.New,
	)
	return &server.App{}, nil
}
