// Package collector fetches daily price and volume series from market data
// providers and normalizes them into domain.MarketData.
package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/metrics"
	"github.com/vadiminshakov/cryptorisk/pkg/cache"
	"github.com/vadiminshakov/cryptorisk/pkg/retrier"
)

const defaultRequestTimeout = 10 * time.Second

// Source is one market data provider.
type Source interface {
	// Name identifies the provider in logs, metrics and errors.
	Name() string
	// Supports reports whether Fetch can serve assetID without calling upstream.
	Supports(assetID string) bool
	// Fetch returns the series for the last days. Failures are *ProviderError.
	Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error)
}

type cacheKey struct {
	provider string
	assetID  string
	days     int
}

// policy is the fetch shape shared by every source: cache lookup, then a
// bounded number of attempts with backoff, each under its own deadline.
type policy struct {
	provider string
	cache    *cache.Cache[cacheKey, *domain.MarketData]
	retrier  *retrier.Retrier
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type policyConfig struct {
	ttl     time.Duration
	timeout time.Duration
	retrier *retrier.Retrier
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   func() time.Time
}

// Option configures a Source.
type Option func(*policyConfig)

// WithTTL overrides the provider cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *policyConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRequestTimeout sets the deadline of a single upstream attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *policyConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetrier replaces the default three attempt linear policy.
func WithRetrier(r *retrier.Retrier) Option {
	return func(c *policyConfig) {
		if r != nil {
			c.retrier = r
		}
	}
}

// WithMetrics enables metrics recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *policyConfig) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *policyConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *policyConfig) {
		if now != nil {
			c.clock = now
		}
	}
}

func newPolicy(provider string, defaultTTL time.Duration, opts ...Option) *policy {
	cfg := &policyConfig{
		ttl:     defaultTTL,
		timeout: defaultRequestTimeout,
		logger:  zap.NewNop(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.retrier == nil {
		cfg.retrier = retrier.New()
	}

	logger := cfg.logger.Named(provider)

	return &policy{
		provider: provider,
		cache:    cache.New[cacheKey, *domain.MarketData](cfg.ttl, cache.WithClock[cacheKey, *domain.MarketData](cfg.clock)),
		retrier:  cfg.retrier,
		timeout:  cfg.timeout,
		metrics:  cfg.metrics,
		logger:   logger,
	}
}

// fetch serves (assetID, days) from cache or runs attempt under the retry policy.
// attempt must return *ProviderError for classified failures; anything else is
// treated as transport.
func (p *policy) fetch(
	ctx context.Context,
	assetID string,
	days int,
	attempt func(ctx context.Context) (*domain.MarketData, error),
) (*domain.MarketData, error) {
	if days < 1 {
		return nil, newProviderError(p.provider, KindUnsupported, nil, "invalid window of %d days", days)
	}

	key := cacheKey{provider: p.provider, assetID: assetID, days: days}
	data, res, err := p.cache.GetOrLoad(ctx, key, func(ctx context.Context) (*domain.MarketData, error) {
		return retrier.DoWithData(ctx, p.retrier, func(ctx context.Context, n int) (*domain.MarketData, error) {
			return p.attempt(ctx, assetID, days, n, attempt)
		})
	})

	p.metrics.CacheLookup(p.provider, res.String())
	if err != nil {
		return nil, asProviderError(p.provider, err)
	}
	if res == cache.Hit {
		p.logger.Debug("cache hit", zap.String("asset", assetID), zap.Int("days", days))
	}

	return data, nil
}

func (p *policy) attempt(
	ctx context.Context,
	assetID string,
	days, n int,
	fn func(ctx context.Context) (*domain.MarketData, error),
) (*domain.MarketData, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	data, err := fn(attemptCtx)
	if err == nil {
		p.metrics.UpstreamRequest(p.provider, metrics.OutcomeSuccess)
		p.logger.Info("fetched market data",
			zap.String("asset", assetID),
			zap.Int("days", days),
			zap.Int("points", len(data.Prices)),
			zap.Duration("took", time.Since(start)),
		)
		return data, nil
	}

	perr := asProviderError(p.provider, err)
	p.metrics.UpstreamRequest(p.provider, perr.Kind.String())

	if !perr.Kind.Retryable() {
		return nil, retrier.Permanent(perr)
	}

	last := n == p.retrier.MaxAttempts()-1
	if perr.Kind == KindRateLimited && last {
		p.logger.Warn("rate limited on last attempt, giving up", zap.String("asset", assetID))
		return nil, retrier.Permanent(perr)
	}

	if !last {
		p.logger.Warn("upstream attempt failed, retrying",
			zap.String("asset", assetID),
			zap.Int("attempt", n+1),
			zap.Stringer("kind", perr.Kind),
			zap.Error(perr.Err),
		)
	}

	return nil, perr
}
