package di

import (
	"context"
	"fmt"
	"time"

	"MarketSleuth/internal/domain/repository"
	domsvc "MarketSleuth/internal/domain/service"
	"MarketSleuth/internal/handler/api"
	"MarketSleuth/internal/reports"
	internalrepo "MarketSleuth/internal/repository"
	"MarketSleuth/internal/services/anomaly"
	"MarketSleuth/internal/services/evidence"
	"MarketSleuth/internal/services/llm"
	"MarketSleuth/internal/services/marketdata"
	"MarketSleuth/internal/services/ratelimit"
	"MarketSleuth/internal/services/search"
	"MarketSleuth/internal/services/strategy"
	"MarketSleuth/internal/services/stream"
	"MarketSleuth/internal/usecase"
	"MarketSleuth/pkg/cache"
	pkgch "MarketSleuth/pkg/clickhouse"
	"MarketSleuth/pkg/config"
	xhttp "MarketSleuth/pkg/http"
	pkgkafka "MarketSleuth/pkg/kafka"
	"MarketSleuth/pkg/logger"
	"MarketSleuth/pkg/metrics"
	"MarketSleuth/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.NewRecorder()
}

// ProvideCache creates the shared cache; Redis-backed with an in-memory
// front when configured, plain in-memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when
// ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
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

// ProvideSignalStore creates the signal store. Falls back to a bounded
// in-memory store when ClickHouse is disabled.
func ProvideSignalStore(chClient *pkgch.Client, log *logger.Logger) (repository.SignalStore, error) {
	if chClient == nil {
		return internalrepo.NewMemoryStore(0), nil
	}
	store := internalrepo.NewClickHouseStore(chClient, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the Kafka-backed publisher when a producer is
// available.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, log *logger.Logger) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic, cfg.Kafka.VerdictTopic, log)
}

// ProvideRateLimiter creates the shared outbound request limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideLanguageModel creates the chat-completion collaborator client.
func ProvideLanguageModel(cfg *config.Config, log *logger.Logger) domsvc.LanguageModel {
	return llm.NewClient(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, log)
}

// ProvideSearchProvider creates the Tavily news search client.
func ProvideSearchProvider(cfg *config.Config, limiter *ratelimit.Limiter, c cache.Service, log *logger.Logger) domsvc.SearchProvider {
	return search.NewTavilyClient(search.TavilyOptions{
		BaseURL:        cfg.Search.BaseURL,
		APIKey:         cfg.Search.APIKey,
		MaxResults:     cfg.Search.MaxResults,
		Days:           cfg.Search.Days,
		Depth:          cfg.Search.Depth,
		Timeout:        cfg.Search.Timeout,
		RequestsPerSec: cfg.Search.RequestsPerSec,
		CacheTTL:       cfg.Cache.SearchTTL,
	}, limiter, c, log)
}

// ProvideCredibilityTable creates the source credibility table.
func ProvideCredibilityTable(cfg *config.Config) *evidence.CredibilityTable {
	return evidence.NewCredibilityTable(cfg.CredibilityTiers)
}

// ProvideEvaluator creates the evidence evaluator.
func ProvideEvaluator(table *evidence.CredibilityTable, model domsvc.LanguageModel) *evidence.Evaluator {
	return evidence.NewEvaluator(table, model)
}

// ProvideAggregator creates the confidence aggregator.
func ProvideAggregator(cfg *config.Config) (*evidence.Aggregator, error) {
	return evidence.NewAggregator(evidence.Weights{
		Credibility: cfg.Aggregation.CredibilityWeight,
		Relevance:   cfg.Aggregation.RelevanceWeight,
		Specificity: cfg.Aggregation.SpecificityWeight,
	}, cfg.Investigation.TopKEvidence)
}

// ProvideSequencer creates the query strategy sequencer.
func ProvideSequencer(cfg *config.Config, model domsvc.LanguageModel) *strategy.Sequencer {
	return strategy.NewSequencer(model,
		cfg.Investigation.QueriesPerIteration,
		cfg.Investigation.MaxQueryLength,
		cfg.Investigation.ExpertRoles)
}

// ProvideScorer creates the anomaly scorer.
func ProvideScorer(cfg *config.Config) *anomaly.Scorer {
	return anomaly.NewScorer(cfg)
}

// ProvideReportSink creates the markdown report writer.
func ProvideReportSink(cfg *config.Config) (repository.ReportSink, error) {
	return reports.NewWriter(cfg.Monitor.ReportsDir)
}

// ProvideMarketData creates the daily-candle REST client.
func ProvideMarketData(cfg *config.Config, c cache.Service, log *logger.Logger) *marketdata.Client {
	return marketdata.NewClient(marketdata.Options{
		BaseURL:  cfg.MarketData.BaseURL,
		APIKey:   cfg.MarketData.APIKey,
		Timeout:  cfg.MarketData.Timeout,
		CacheTTL: cfg.Cache.BarTTL,
	}, c, log)
}

// ProvideTickStream creates the live WebSocket feed, or nil when the
// stream is disabled.
func ProvideTickStream(cfg *config.Config, log *logger.Logger) repository.TickStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return stream.New(
		cfg.Stream.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Monitor.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		log,
	)
}

// ProvideRecorder creates the intraday bar recorder.
func ProvideRecorder(log *logger.Logger) *stream.Recorder {
	return stream.NewRecorder(0, log)
}

// ProvideBarSource picks the bar source for sweeps: REST candles,
// overlaid with the recorder's live open bar when streaming.
func ProvideBarSource(cfg *config.Config, md *marketdata.Client, rec *stream.Recorder) repository.BarSource {
	if cfg.Stream.Enabled {
		return stream.NewHybridSource(md, rec)
	}
	return md
}

// ProvideInvestigator creates the investigation controller.
func ProvideInvestigator(
	cfg *config.Config,
	sequencer *strategy.Sequencer,
	searchProvider domsvc.SearchProvider,
	evaluator *evidence.Evaluator,
	agg *evidence.Aggregator,
	model domsvc.LanguageModel,
	store repository.SignalStore,
	publisher repository.Publisher,
	sink repository.ReportSink,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Investigator {
	return usecase.NewInvestigator(usecase.InvestigatorConfig{
		AcceptConfidence:    cfg.Investigation.AcceptConfidence,
		PartialFloor:        cfg.Investigation.PartialFloor,
		MaxRetries:          cfg.Investigation.MaxRetries,
		Concurrency:         cfg.Investigation.Concurrency,
		CollaboratorTimeout: cfg.Investigation.CollaboratorTimeout,
	}, sequencer, searchProvider, evaluator, agg, model, store, publisher, sink, m, log)
}

// ProvideMonitor creates the watchlist monitor.
func ProvideMonitor(
	cfg *config.Config,
	bars repository.BarSource,
	scorer *anomaly.Scorer,
	investigator *usecase.Investigator,
	store repository.SignalStore,
	publisher repository.Publisher,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Monitor {
	return usecase.NewMonitor(usecase.MonitorConfig{
		Symbols:     cfg.Monitor.Symbols,
		Window:      cfg.Monitor.Window,
		Concurrency: cfg.Monitor.Concurrency,
	}, bars, scorer, investigator, store, publisher, m, log)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	store repository.SignalStore,
	monitor *usecase.Monitor,
	investigator *usecase.Investigator,
	cfg *config.Config,
	log *logger.Logger,
) xhttp.Handler {
	return api.NewHandler(store, monitor, investigator, cfg.Monitor.Window, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	monitor *usecase.Monitor,
	ticks repository.TickStream,
	recorder *stream.Recorder,
	store repository.SignalStore,
	publisher repository.Publisher,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, monitor, ticks, recorder, store, publisher, handler)
}
