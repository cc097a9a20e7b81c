package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/internal/handler/api"
	mid "ExtremeScan/internal/middleware"
	internalrepo "ExtremeScan/internal/repository"
	"ExtremeScan/internal/service/notify"
	"ExtremeScan/internal/service/ratelimit"
	"ExtremeScan/internal/services/analysis"
	"ExtremeScan/internal/usecase"
	"ExtremeScan/pkg/cache"
	pkgch "ExtremeScan/pkg/clickhouse"
	"ExtremeScan/pkg/config"
	xhttp "ExtremeScan/pkg/http"
	pkgkafka "ExtremeScan/pkg/kafka"
	applogger "ExtremeScan/pkg/logger"
	"ExtremeScan/pkg/metrics"
	"ExtremeScan/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled. Aggregated error logs are shipped through it when configured.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.Kafka.ClientID),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logger.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logger.Collector.Interval,
			CountThreshold: cfg.Logger.Collector.CountThreshold,
			Topic:          cfg.Logger.Collector.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideRedisCache connects to Redis, or returns nil when it is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers a memory cache over Redis when available, otherwise
// the cache is process-local.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(30*time.Second))
}

// ProvideClickHouseClient connects only when ClickHouse is the candle source.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Fetcher.Source != config.SourceClickHouse {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithAddr(ch.Host, ch.Port),
		pkgch.WithAuth(ch.Database, ch.User, ch.Password),
		pkgch.WithPool(10, 5, 0),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if !cfg.ClickHouse.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.EnsureCandleSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideMarketDataFetcher selects the candle source; real sources fall
// back to synthetic data when enabled.
func ProvideMarketDataFetcher(cfg *config.Config, ch *pkgch.Client, m domrepo.Metrics, l *applogger.Logger) domrepo.MarketDataFetcher {
	tf := domrepo.NormalizeTimeframe(cfg.Fetcher.Timeframe)
	synthetic := internalrepo.NewSyntheticFetcher(seed(cfg), nil)

	var primary domrepo.MarketDataFetcher
	switch cfg.Fetcher.Source {
	case config.SourceHTTP:
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Fetcher.Timeout))
		primary = internalrepo.NewHTTPMarketFetcher(client, cfg.Fetcher.BaseURL, tf, cfg.Fetcher.Limit, l)
	case config.SourceClickHouse:
		primary = internalrepo.NewCHCandleFetcher(ch, tf, cfg.Fetcher.Limit, l)
	default:
		return synthetic
	}
	if !cfg.Fetcher.Fallback {
		return primary
	}
	return internalrepo.NewFallbackFetcher(primary, synthetic, m, l)
}

func seed(cfg *config.Config) int64 {
	if cfg.Fetcher.Seed != 0 {
		return cfg.Fetcher.Seed
	}
	return time.Now().UnixNano()
}

// ProvideSignalStore creates the in-memory signal lifecycle store.
func ProvideSignalStore(m domrepo.Metrics, l *applogger.Logger) *internalrepo.MemorySignalStore {
	return internalrepo.NewMemorySignalStore(
		internalrepo.WithStoreMetrics(m),
		internalrepo.WithStoreLogger(l),
	)
}

// ProvideTrendlineCache keeps trendline tables in the shared cache.
func ProvideTrendlineCache(svc cache.Service, l *applogger.Logger) *internalrepo.CachedTrendlines {
	return internalrepo.NewCachedTrendlines(svc, 0, l)
}

// ProvideStrategyCombiner wires the five analysis strategies.
func ProvideStrategyCombiner(
	lines domrepo.TrendlineCache,
	store domrepo.SignalStore,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.StrategyCombiner {
	strategies := analysis.DefaultStrategies(analysis.NewTrendlineAnalyzer(lines))
	return usecase.NewStrategyCombiner(strategies, lines, store, usecase.NewSignalFactory(), m, l)
}

// ProvideSignalAgent creates the polling agent. The fetcher is injected by
// the background service.
func ProvideSignalAgent(combiner *usecase.StrategyCombiner, store domrepo.SignalStore, m domrepo.Metrics, l *applogger.Logger) *usecase.SignalAgent {
	return usecase.NewSignalAgent(combiner, store,
		usecase.WithAgentMetrics(m),
		usecase.WithAgentLogger(l),
	)
}

// ProvideHub creates the WebSocket push hub.
func ProvideHub(l *applogger.Logger) *notify.Hub {
	return notify.NewHub(l)
}

// ProvideSignalSinks lists the outbound channels for new signals.
func ProvideSignalSinks(cfg *config.Config, producer *pkgkafka.Producer, rc *cache.RedisCache, svc cache.Service, hub *notify.Hub) []domrepo.SignalSink {
	sinks := []domrepo.SignalSink{hub}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.SignalsTopic))
	}
	if rc != nil {
		sinks = append(sinks, internalrepo.NewCacheSignalSink(svc, nil))
	}
	return sinks
}

// ProvideSignalPipeline creates the buffered dispatcher in front of the sinks.
func ProvideSignalPipeline(cfg *config.Config, sinks []domrepo.SignalSink, m domrepo.Metrics, l *applogger.Logger) *mid.SignalPipeline {
	return mid.NewSignalPipeline(sinks, m,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithSymbolInterval(cfg.Pipeline.SymbolInterval),
		mid.WithRetry(cfg.Pipeline.RetryAttempts, cfg.Pipeline.RetryBackoff),
		mid.WithDeliveryTimeout(cfg.Pipeline.DeliveryTimeout),
		mid.WithPipelineLogger(l),
	)
}

// ProvideBackgroundService uses the pipeline as its notifier.
func ProvideBackgroundService(agent *usecase.SignalAgent, fetcher domrepo.MarketDataFetcher, pipeline *mid.SignalPipeline, l *applogger.Logger) *usecase.BackgroundService {
	return usecase.NewBackgroundService(agent, fetcher, pipeline, l)
}

// ProvideServiceConfigPatch maps the service section of the config.
func ProvideServiceConfigPatch(cfg *config.Config) models.ServiceConfigPatch {
	s := cfg.Service
	autoStart, notifyOn := s.AutoStart, s.NotifyOnSignal
	interval, minConf, minVol := s.CheckInterval, s.MinConfidence, s.MinVolumeUSD
	return models.ServiceConfigPatch{
		AutoStart:      &autoStart,
		Symbols:        append([]string(nil), s.Symbols...),
		CheckInterval:  &interval,
		MinConfidence:  &minConf,
		MinVolumeUSD:   &minVol,
		NotifyOnSignal: &notifyOn,
	}
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.StatusTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaStatusHandler handles status commands, or nil without a consumer.
func ProvideKafkaStatusHandler(cfg *config.Config, consumer *pkgkafka.Consumer, store domrepo.SignalStore, m domrepo.Metrics, l *applogger.Logger) pkgkafka.MessageHandler {
	if consumer == nil {
		return nil
	}
	return usecase.NewKafkaStatusHandler(cfg.Kafka.StatusTopic, store, m, l)
}

// ProvideRateLimiter limits on-demand checks per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.Server.RateLimit.Capacity), cfg.Server.RateLimit.RefillPerSecond)
}

// ProvideAgentHandler creates the REST and WebSocket handler.
func ProvideAgentHandler(
	l *applogger.Logger,
	svc *usecase.BackgroundService,
	agent *usecase.SignalAgent,
	store domrepo.SignalStore,
	combiner *usecase.StrategyCombiner,
	hub *notify.Hub,
	limiter *ratelimit.Limiter,
) *api.AgentEchoHandler {
	return api.NewAgentEchoHandler(l, svc, agent, store, combiner, hub, limiter)
}

// ProvideHealthChecks pings the optional backends that are configured.
func ProvideHealthChecks(rc *cache.RedisCache, ch *pkgch.Client) []xhttp.HealthCheck {
	var out []xhttp.HealthCheck
	if rc != nil {
		out = append(out, xhttp.HealthCheck{Name: "redis", Check: rc.Health})
	}
	if ch != nil {
		out = append(out, xhttp.HealthCheck{Name: "clickhouse", Check: ch.Health})
	}
	return out
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AgentEchoHandler, checks []xhttp.HealthCheck) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers := []xhttp.Handler{h, xhttp.HealthHandler(checks, 2*time.Second)}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithServerLogger(l),
	)
}

// ProvideClosers lists infrastructure clients to release at shutdown.
func ProvideClosers(producer *pkgkafka.Producer, rc *cache.RedisCache, ch *pkgch.Client, svc cache.Service) server.Closers {
	var out server.Closers
	if c, ok := svc.(io.Closer); ok {
		out = append(out, server.Closer{Name: "cache", Close: c.Close})
	}
	if rc != nil {
		out = append(out, server.Closer{Name: "redis", Close: rc.Close})
	}
	if ch != nil {
		out = append(out, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if producer != nil {
		out = append(out, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	return out
}
