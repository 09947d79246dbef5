package collector

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/cryptorisk/internal/clients"
	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/pkg/flexnum"
)

const (
	// CoinGeckoName is the CoinGecko source name.
	CoinGeckoName = "coingecko"

	coinGeckoTTL = 180 * time.Second
)

// MarketChartClient is the CoinGecko call the source needs.
type MarketChartClient interface {
	MarketChart(ctx context.Context, coinID string, days int) (*clients.MarketChart, error)
}

// CoinGeckoSource serves market_chart series. It accepts every asset id and
// is meant to be the last source of an Aggregator.
type CoinGeckoSource struct {
	client MarketChartClient
	policy *policy
}

// NewCoinGeckoSource creates a CoinGecko source with a 180s cache.
func NewCoinGeckoSource(client MarketChartClient, opts ...Option) *CoinGeckoSource {
	return &CoinGeckoSource{
		client: client,
		policy: newPolicy(CoinGeckoName, coinGeckoTTL, opts...),
	}
}

func (s *CoinGeckoSource) Name() string {
	return CoinGeckoName
}

// Supports is true for any non-empty id; CoinGecko ids are the canonical ids.
func (s *CoinGeckoSource) Supports(assetID string) bool {
	return strings.TrimSpace(assetID) != ""
}

// Fetch returns the USD price and volume series of assetID.
func (s *CoinGeckoSource) Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error) {
	if !s.Supports(assetID) {
		return nil, newProviderError(CoinGeckoName, KindUnsupported, nil, "empty asset id")
	}

	return s.policy.fetch(ctx, assetID, days, func(ctx context.Context) (*domain.MarketData, error) {
		return s.fetchChart(ctx, assetID, days)
	})
}

func (s *CoinGeckoSource) fetchChart(ctx context.Context, assetID string, days int) (*domain.MarketData, error) {
	chart, err := s.client.MarketChart(ctx, assetID, days)
	if err != nil {
		return nil, classifyCoinGeckoError(err, assetID)
	}

	prices, err := parseSeries(chart.Prices)
	if err != nil {
		return nil, newProviderError(CoinGeckoName, KindMalformed, err, "prices of %s", assetID)
	}
	if len(prices) == 0 {
		return nil, newProviderError(CoinGeckoName, KindEmpty, nil, "no prices for %s", assetID)
	}

	volumePoints, err := parseSeries(chart.TotalVolumes)
	if err != nil {
		return nil, newProviderError(CoinGeckoName, KindMalformed, err, "total_volumes of %s", assetID)
	}
	volumes := make([]decimal.Decimal, len(volumePoints))
	for i, v := range volumePoints {
		volumes[i] = v.Price
	}
	current, average := seriesVolumes(volumes)

	return &domain.MarketData{
		Prices:        prices,
		CurrentVolume: current,
		AverageVolume: average,
		Source:        CoinGeckoName,
	}, nil
}

// parseSeries converts [timestamp, value] rows into ascending points.
func parseSeries(rows [][]flexnum.Value) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, errors.Errorf("row %d has %d elements", i, len(row))
		}
		if !row[0].Valid || !row[1].Valid {
			return nil, errors.Errorf("row %d has null elements", i)
		}
		ts, err := flexnum.Int64(row[0].Decimal)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d timestamp", i)
		}
		points = append(points, domain.PricePoint{Timestamp: ts, Price: row[1].Decimal})
	}
	return sortPoints(points), nil
}

func classifyCoinGeckoError(err error, assetID string) *ProviderError {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return newProviderError(CoinGeckoName, KindRateLimited, err, "market_chart for %s", assetID)
		case statusErr.StatusCode == http.StatusNotFound:
			return newProviderError(CoinGeckoName, KindEmpty, err, "unknown coin %s", assetID)
		default:
			return newProviderError(CoinGeckoName, KindTransport, err, "market_chart for %s", assetID)
		}
	}

	if errors.Is(err, clients.ErrMalformedResponse) {
		return newProviderError(CoinGeckoName, KindMalformed, err, "market_chart for %s", assetID)
	}

	return newProviderError(CoinGeckoName, KindTransport, err, "market_chart for %s", assetID)
}
