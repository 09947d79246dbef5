package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/cryptorisk/internal/clients"
	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/services/market/symbols"
	"github.com/vadiminshakov/cryptorisk/pkg/flexnum"
)

const (
	// BinanceName is the Binance source name.
	BinanceName = "binance"

	binanceInterval = "1d"
	binanceTTL      = 60 * time.Second
)

// binance API error codes meaning the request weight or order rate was exceeded.
var binanceRateLimitCodes = map[int64]struct{}{
	-1003: {},
	-1015: {},
}

// BinanceSource serves daily spot klines. The newest kline is the open day and
// is left out of the volume figures.
type BinanceSource struct {
	client  *binance.Client
	symbols *symbols.Mapper
	policy  *policy
}

// NewBinanceSource creates a Binance source with a 60s cache.
func NewBinanceSource(client *binance.Client, mapper *symbols.Mapper, opts ...Option) *BinanceSource {
	return &BinanceSource{
		client:  client,
		symbols: mapper,
		policy:  newPolicy(BinanceName, binanceTTL, opts...),
	}
}

func (s *BinanceSource) Name() string {
	return BinanceName
}

// Supports reports whether assetID has a Binance symbol.
func (s *BinanceSource) Supports(assetID string) bool {
	return s.symbols.Supported(assetID)
}

// Fetch returns days daily closes for assetID.
func (s *BinanceSource) Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error) {
	symbol, ok := s.symbols.PrimarySymbol(assetID)
	if !ok {
		return nil, newProviderError(BinanceName, KindUnsupported, nil, "asset %q has no binance symbol", assetID)
	}

	return s.policy.fetch(ctx, assetID, days, func(ctx context.Context) (*domain.MarketData, error) {
		return s.fetchKlines(ctx, symbol, days)
	})
}

func (s *BinanceSource) fetchKlines(ctx context.Context, symbol string, days int) (*domain.MarketData, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(binanceInterval).
		Limit(days).
		Do(ctx)
	if err != nil {
		return nil, classifyBinanceError(err, symbol)
	}

	if len(klines) == 0 {
		return nil, newProviderError(BinanceName, KindEmpty, nil, "no klines for %s", symbol)
	}

	candles := make([]candle, len(klines))
	for i, k := range klines {
		closePrice, err := flexnum.ParseString(k.Close)
		if err != nil {
			return nil, newProviderError(BinanceName, KindMalformed, err, "close price at index %d", i)
		}
		volume, err := flexnum.ParseString(k.Volume)
		if err != nil {
			return nil, newProviderError(BinanceName, KindMalformed, err, "volume at index %d", i)
		}

		candles[i] = candle{
			OpenTime: k.OpenTime,
			Close:    closePrice,
			Volume:   volume,
		}
	}

	candles = sortCandles(candles)
	current, average := candleVolumes(candles)

	return &domain.MarketData{
		Prices:        candlePrices(candles),
		CurrentVolume: current,
		AverageVolume: average,
		Source:        BinanceName,
	}, nil
}

func classifyBinanceError(err error, symbol string) *ProviderError {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) && clients.IsThrottleStatus(statusErr.StatusCode) {
		return newProviderError(BinanceName, KindRateLimited, err, "klines for %s: status %d", symbol, statusErr.StatusCode)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if _, ok := binanceRateLimitCodes[apiErr.Code]; ok {
			return newProviderError(BinanceName, KindRateLimited, err, "klines for %s", symbol)
		}
		return newProviderError(BinanceName, KindTransport, err, "api error %d for %s", apiErr.Code, symbol)
	}

	if isDecodeError(err) || containsAny(err.Error(), "invalid kline response") {
		return newProviderError(BinanceName, KindMalformed, err, "klines for %s", symbol)
	}

	return newProviderError(BinanceName, KindTransport, err, "klines for %s", symbol)
}
