package collector

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/metrics"
)

// Aggregator tries an ordered list of sources and returns the first success.
// Only the error of the last attempted source reaches the caller.
type Aggregator struct {
	sources []Source
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAggregator creates an Aggregator over sources in priority order.
// The last source should support every asset.
func NewAggregator(logger *zap.Logger, m *metrics.Metrics, sources ...Source) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, errors.New("aggregator needs at least one source")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		sources: sources,
		metrics: m,
		logger:  logger.Named("aggregator"),
	}, nil
}

// Sources returns source names in try order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns market data for assetID over days from the first source that
// supports the asset and answers successfully.
func (a *Aggregator) Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error) {
	var lastErr error

	for i, src := range a.sources {
		isLast := i == len(a.sources)-1

		if !src.Supports(assetID) {
			a.logger.Debug("source does not support asset, skipping",
				zap.String("source", src.Name()),
				zap.String("asset", assetID),
			)
			if !isLast {
				a.metrics.Fallback(src.Name())
			}
			continue
		}

		data, err := src.Fetch(ctx, assetID, days)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}

		if !isLast {
			a.logger.Warn("source failed, falling back",
				zap.String("source", src.Name()),
				zap.String("asset", assetID),
				zap.Int("days", days),
				zap.Error(err),
			)
			a.metrics.Fallback(src.Name())
		}
	}

	if lastErr == nil {
		return nil, newProviderError("aggregator", KindUnsupported, nil, "no source supports asset %q", assetID)
	}

	return nil, lastErr
}
