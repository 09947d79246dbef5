package collector

import (
	"context"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/services/market/symbols"
	"github.com/vadiminshakov/cryptorisk/pkg/flexnum"
)

const (
	// BybitName is the Bybit source name.
	BybitName = "bybit"

	bybitDailyInterval = bybit.Interval("D")
	bybitTTL           = 60 * time.Second
	bybitMaxPerRequest = 200
)

// KlineClient is the Bybit V5 market call used by BybitSource, satisfied by
// (*bybit.Client).V5().Market().
type KlineClient interface {
	GetKline(param bybit.V5GetKlineParam) (*bybit.V5GetKlineResponse, error)
}

// BybitSource serves daily spot klines from Bybit. It shares the symbol table
// with Binance since both list the same USDT pairs.
type BybitSource struct {
	client  KlineClient
	symbols *symbols.Mapper
	policy  *policy
}

// NewBybitSource creates a Bybit source with a 60s cache.
func NewBybitSource(client KlineClient, mapper *symbols.Mapper, opts ...Option) *BybitSource {
	return &BybitSource{
		client:  client,
		symbols: mapper,
		policy:  newPolicy(BybitName, bybitTTL, opts...),
	}
}

func (s *BybitSource) Name() string {
	return BybitName
}

func (s *BybitSource) Supports(assetID string) bool {
	return s.symbols.Supported(assetID)
}

// Fetch returns days daily closes for assetID.
func (s *BybitSource) Fetch(ctx context.Context, assetID string, days int) (*domain.MarketData, error) {
	symbol, ok := s.symbols.PrimarySymbol(assetID)
	if !ok {
		return nil, newProviderError(BybitName, KindUnsupported, nil, "asset %q has no bybit symbol", assetID)
	}

	return s.policy.fetch(ctx, assetID, days, func(ctx context.Context) (*domain.MarketData, error) {
		return s.fetchKlines(ctx, symbol, days)
	})
}

type bybitResult struct {
	resp *bybit.V5GetKlineResponse
	err  error
}

func (s *BybitSource) fetchKlines(ctx context.Context, symbol string, days int) (*domain.MarketData, error) {
	limit := days
	if limit > bybitMaxPerRequest {
		limit = bybitMaxPerRequest
	}

	// the SDK call takes no context, so the attempt deadline is enforced here
	done := make(chan bybitResult, 1)
	go func() {
		resp, err := s.client.GetKline(bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybitDailyInterval,
			Limit:    &limit,
		})
		done <- bybitResult{resp: resp, err: err}
	}()

	var res bybitResult
	select {
	case <-ctx.Done():
		return nil, newProviderError(BybitName, KindTransport, ctx.Err(), "klines for %s", symbol)
	case res = <-done:
	}

	if res.err != nil {
		return nil, classifyBybitError(res.err, symbol)
	}
	if res.resp == nil {
		return nil, newProviderError(BybitName, KindMalformed, nil, "nil response for %s", symbol)
	}

	list := res.resp.Result.List
	if len(list) == 0 {
		return nil, newProviderError(BybitName, KindEmpty, nil, "no klines for %s", symbol)
	}

	candles := make([]candle, len(list))
	for i, k := range list {
		c, err := convertBybitKline(k)
		if err != nil {
			return nil, newProviderError(BybitName, KindMalformed, err, "kline at index %d", i)
		}
		candles[i] = c
	}

	// bybit lists newest first
	candles = sortCandles(candles)
	current, average := candleVolumes(candles)

	return &domain.MarketData{
		Prices:        candlePrices(candles),
		CurrentVolume: current,
		AverageVolume: average,
		Source:        BybitName,
	}, nil
}

func convertBybitKline(k bybit.V5GetKlineItem) (candle, error) {
	openTime, err := flexnum.Int64(k.StartTime)
	if err != nil {
		return candle{}, errors.Wrapf(err, "start time %q", k.StartTime)
	}
	closePrice, err := flexnum.ParseString(k.Close)
	if err != nil {
		return candle{}, errors.Wrap(err, "close price")
	}
	volume, err := flexnum.ParseString(k.Volume)
	if err != nil {
		return candle{}, errors.Wrap(err, "volume")
	}

	return candle{OpenTime: openTime, Close: closePrice, Volume: volume}, nil
}

func classifyBybitError(err error, symbol string) *ProviderError {
	// retCode 10006 too many visits, 10018 exceeded the IP rate limit
	if containsAny(err.Error(), "10006", "10018", "too many visits", "rate limit") {
		return newProviderError(BybitName, KindRateLimited, err, "klines for %s", symbol)
	}
	if isDecodeError(err) {
		return newProviderError(BybitName, KindMalformed, err, "klines for %s", symbol)
	}
	return newProviderError(BybitName, KindTransport, err, "klines for %s", symbol)
}
