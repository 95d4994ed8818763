//go:build wireinject
// +build wireinject

package di

import (
	"dogebot/pkg/config"
	"dogebot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Exchange access
		ProvideExchangeClient,
		ProvideMarketData,
		ProvidePriceCollector,

		// Persisted state
		ProvideParamStore,
		ProvidePortfolioStore,
		ProvideTradeCounter,
		ProvideStatusSink,

		// Optional infrastructure
		ProvidePublisher,
		ProvideArchive,

		// Use cases
		ProvideLearner,
		ProvideExecutor,
		ProvidePortfolioTracker,
		ProvideTradingLoop,

		// HTTP surface
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
