//go:build wireinject
// +build wireinject

package di

import (
	"MarketSleuth/pkg/config"
	"MarketSleuth/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideSignalStore,
		ProvideKafkaProducer,
		ProvidePublisher,
		ProvideRateLimiter,

		// Collaborators
		ProvideLanguageModel,
		ProvideSearchProvider,
		ProvideCredibilityTable,
		ProvideEvaluator,
		ProvideAggregator,
		ProvideSequencer,

		// Market data
		ProvideScorer,
		ProvideMarketData,
		ProvideTickStream,
		ProvideRecorder,
		ProvideBarSource,

		// Use cases
		ProvideReportSink,
		ProvideInvestigator,
		ProvideMonitor,

		// HTTP and application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
