package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"dogebot/internal/domain/models"
	"dogebot/internal/domain/repository"
	"dogebot/internal/handler/api"
	"dogebot/internal/learn"
	internalrepo "dogebot/internal/repository"
	"dogebot/internal/service/coinbase"
	"dogebot/internal/usecase"
	pkgcache "dogebot/pkg/cache"
	pkgch "dogebot/pkg/clickhouse"
	"dogebot/pkg/config"
	xhttp "dogebot/pkg/http"
	pkgkafka "dogebot/pkg/kafka"
	"dogebot/pkg/logger"
	"dogebot/pkg/metrics"
	"dogebot/pkg/server"
)

// ProvideLogger creates the application logger with the recent-problems
// collector attached so status snapshots can surface warnings.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AddCollector(&logger.CollectionConfig{Capacity: 20})
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideExchangeClient creates the Advanced Trade API client.
func ProvideExchangeClient(cfg *config.Config, log *logger.Logger) *coinbase.Client {
	opts := []coinbase.ClientOption{
		coinbase.WithProductID(cfg.Exchange.ProductID),
		coinbase.WithCredentials(cfg.Exchange.APIKey, cfg.Exchange.APISecret),
		coinbase.WithRetry(cfg.Exchange.FetchRetries, cfg.Exchange.RetryDelay),
		coinbase.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Exchange.RequestTimeout))),
	}
	if cfg.Exchange.BaseURL != "" {
		opts = append(opts, coinbase.WithBaseURL(cfg.Exchange.BaseURL))
	}
	return coinbase.NewClient(log, opts...)
}

// ProvideMarketData returns the candle source, wrapped with a Redis range
// cache when configured. The learner replays the same ranges on every pass,
// so caching keeps repeated grid searches off the exchange API.
func ProvideMarketData(client *coinbase.Client, cfg *config.Config, log *logger.Logger) repository.MarketData {
	if !cfg.Redis.Enabled {
		return client
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		log.Warn("invalid redis addr, candle cache disabled",
			logger.String("addr", cfg.Redis.Addr), logger.Error(err))
		return client
	}
	port, _ := strconv.Atoi(portStr)

	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("dogebot"),
	)
	if err != nil {
		log.Warn("redis unavailable, candle cache disabled", logger.Error(err))
		return client
	}
	// Memory L1 keeps repeated grid passes within one run off Redis entirely.
	layered := pkgcache.NewLayeredCache(redisCache)
	return internalrepo.NewCachedMarketData(client, layered, cfg.Redis.TTL, log)
}

// ProvidePriceCollector creates the live ticker consumer, or nil when the
// stream is disabled. The loop falls back to candle closes without it.
func ProvidePriceCollector(cfg *config.Config, m repository.Metrics, log *logger.Logger) *usecase.PriceCollector {
	if !cfg.Exchange.StreamEnabled {
		return nil
	}
	opts := []coinbase.StreamOption{
		coinbase.WithStreamProductID(cfg.Exchange.ProductID),
		coinbase.WithReconnectDelay(cfg.Exchange.ReconnectDelay),
	}
	if cfg.Exchange.StreamURL != "" {
		opts = append(opts, coinbase.WithStreamURL(cfg.Exchange.StreamURL))
	}
	stream := coinbase.NewStream(log, opts...)
	return usecase.NewPriceCollector(stream, m, log)
}

// ProvideParamStore creates the persisted trading parameter store.
func ProvideParamStore(cfg *config.Config, log *logger.Logger) repository.ParamStore {
	return internalrepo.NewFileParamStore(cfg.StatePath(cfg.State.ParamsFile), log)
}

// ProvidePortfolioStore creates the portfolio state and history store.
func ProvidePortfolioStore(cfg *config.Config, log *logger.Logger) repository.PortfolioStore {
	return internalrepo.NewFilePortfolioStore(
		cfg.StatePath(cfg.State.PortfolioFile),
		cfg.StatePath(cfg.State.PortfolioCSV),
		log,
	)
}

// ProvideTradeCounter creates the persisted trade counter.
func ProvideTradeCounter(cfg *config.Config, log *logger.Logger) repository.TradeCounter {
	return internalrepo.NewFileTradeCounter(cfg.StatePath(cfg.State.TradesFile), log)
}

// ProvideStatusSink creates the status snapshot sink.
func ProvideStatusSink(cfg *config.Config) repository.StatusSink {
	return internalrepo.NewFileStatusSink(cfg.StatePath(cfg.State.StatusFile))
}

// ProvidePublisher creates the Kafka order event publisher, or nil when
// Kafka is disabled.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = "dogebot.orders"
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, topic), nil
}

// ProvideArchive creates the ClickHouse candle archive, or nil when
// ClickHouse is disabled.
func ProvideArchive(cfg *config.Config) (repository.Archive, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.CandleArchiveSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return internalrepo.NewClickHouseCandleArchive(client, cfg.ClickHouse.Table), nil
}

// ProvideLearner creates the parameter learner, or nil when learning is
// disabled.
func ProvideLearner(
	market repository.MarketData,
	params repository.ParamStore,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *learn.Learner {
	if !cfg.Learning.Enabled {
		return nil
	}
	return learn.New(market, params, m, log, LearnConfig(cfg))
}

// LearnConfig maps the configuration's learning section to the learner.
func LearnConfig(cfg *config.Config) learn.Config {
	granularities := make([]models.Granularity, 0, len(cfg.Learning.Granularities))
	for _, g := range cfg.Learning.Granularities {
		granularities = append(granularities, models.Granularity(g))
	}
	return learn.Config{
		Period:        cfg.Learning.Period,
		EntryMin:      cfg.Learning.EntryMin,
		EntryMax:      cfg.Learning.EntryMax,
		ExitMin:       cfg.Learning.ExitMin,
		ExitMax:       cfg.Learning.ExitMax,
		MinTrades:     cfg.Learning.MinTrades,
		Granularities: granularities,
	}
}

// ProvideExecutor creates the order executor.
func ProvideExecutor(
	client *coinbase.Client,
	trades repository.TradeCounter,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.Executor {
	return usecase.NewExecutor(client, trades, m, log, usecase.ExecutorConfig{
		DryRun:    cfg.Trading.DryRun,
		AllowLive: cfg.Trading.AllowLive,
		Cooldown:  cfg.Trading.OrderCooldown,
	})
}

// ProvidePortfolioTracker creates the portfolio tracker.
func ProvidePortfolioTracker(store repository.PortfolioStore, log *logger.Logger) *usecase.PortfolioTracker {
	return usecase.NewPortfolioTracker(store, log)
}

// ProvideTradingLoop creates the live trading loop.
func ProvideTradingLoop(
	market repository.MarketData,
	client *coinbase.Client,
	params repository.ParamStore,
	executor *usecase.Executor,
	tracker *usecase.PortfolioTracker,
	status repository.StatusSink,
	publisher repository.Publisher,
	archive repository.Archive,
	m repository.Metrics,
	prices *usecase.PriceCollector,
	learner *learn.Learner,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.TradingLoop {
	return usecase.NewTradingLoop(market, client, params, executor, tracker,
		status, publisher, archive, m, prices, learner, log,
		usecase.LoopConfig{
			ProductID:     cfg.Exchange.ProductID,
			PollInterval:  cfg.Trading.PollInterval,
			LearnInterval: cfg.Learning.Interval,
			LearnDays:     cfg.Learning.Days,
			CandleCount:   cfg.Trading.CandleCount,
			DryRun:        cfg.Trading.DryRun,
			AllowLive:     cfg.Trading.AllowLive,
		})
}

// ProvideStatusHandler creates the HTTP status handler.
func ProvideStatusHandler(log *logger.Logger, status repository.StatusSink, params repository.ParamStore, market repository.MarketData) xhttp.Handler {
	return api.NewStatusHandler(log, status, params, market)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	loop *usecase.TradingLoop,
	prices *usecase.PriceCollector,
	publisher repository.Publisher,
	archive repository.Archive,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, loop, prices, publisher, archive, handler)
}
