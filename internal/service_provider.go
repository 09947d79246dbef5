package internal

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/config"
	"github.com/vadiminshakov/cryptorisk/internal/clients"
	"github.com/vadiminshakov/cryptorisk/internal/metrics"
	"github.com/vadiminshakov/cryptorisk/internal/services/market/collector"
	"github.com/vadiminshakov/cryptorisk/internal/services/market/symbols"
	"github.com/vadiminshakov/cryptorisk/internal/services/risk"
	"github.com/vadiminshakov/cryptorisk/internal/web"
	"github.com/vadiminshakov/cryptorisk/pkg/retrier"
)

// ServiceProvider holds the wired components of the service.
type ServiceProvider struct {
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Aggregator *collector.Aggregator
	Engine     *risk.Engine
	Server     *web.Server
}

// NewServiceProvider builds every component from cfg. Sources are tried in the
// order binance, bybit (when enabled), coingecko.
func NewServiceProvider(cfg config.Config, logger *zap.Logger) (*ServiceProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	aggregator, err := collector.NewAggregator(logger, m, newSources(cfg, logger, m)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build aggregator")
	}

	engine := risk.NewEngine(risk.WithMetrics(m))

	server := web.NewServer(cfg.ListenAddr, web.Deps{
		Fetcher:     aggregator,
		Engine:      engine,
		Logger:      logger,
		Metrics:     m,
		Gatherer:    registry,
		CORSOrigins: cfg.CORSOrigins,
	})
	server.ShutdownTimeout = cfg.ShutdownTimeout

	logger.Info("market data sources configured", zap.Strings("order", aggregator.Sources()))

	return &ServiceProvider{
		Registry:   registry,
		Metrics:    m,
		Aggregator: aggregator,
		Engine:     engine,
		Server:     server,
	}, nil
}

func newSources(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) []collector.Source {
	// per-attempt deadlines come from the source policy
	httpClient := &http.Client{}
	mapper := symbols.Default()

	common := func(ttl time.Duration) []collector.Option {
		return []collector.Option{
			collector.WithTTL(ttl),
			collector.WithRequestTimeout(cfg.RequestTimeout),
			collector.WithRetrier(newRetrier(cfg.Retry, logger)),
			collector.WithMetrics(m),
			collector.WithLogger(logger),
		}
	}

	sources := []collector.Source{
		collector.NewBinanceSource(
			clients.NewBinanceClient(cfg.Binance.BaseURL, httpClient),
			mapper,
			common(cfg.Binance.CacheTTL)...,
		),
	}

	if cfg.Bybit.Enabled {
		sources = append(sources, collector.NewBybitSource(
			clients.NewBybitClient(cfg.Bybit.BaseURL, cfg.RequestTimeout).V5().Market(),
			mapper,
			common(cfg.Bybit.CacheTTL)...,
		))
	}

	sources = append(sources, collector.NewCoinGeckoSource(
		clients.NewCoinGeckoClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, httpClient),
		common(cfg.CoinGecko.CacheTTL)...,
	))

	return sources
}

func newRetrier(cfg config.RetryConfig, logger *zap.Logger) *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxAttempts(cfg.MaxAttempts),
		retrier.WithBackoff(retryBackoff(cfg)),
		retrier.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			logger.Debug("backing off before retry",
				zap.Int("retry", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}),
	)
}

func retryBackoff(cfg config.RetryConfig) retrier.Backoff {
	if cfg.Backoff == config.BackoffExponential {
		return retrier.Exponential(cfg.BaseDelay, cfg.MaxDelay, 2, 0)
	}
	return retrier.Linear(cfg.BaseDelay)
}
