// Package risk turns a daily price series and two volume figures into 0-100
// risk scores and a set of return based risk metrics.
package risk

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/internal/metrics"
)

// daysPerYear crypto markets never close, so returns annualize over calendar days.
const daysPerYear = 365

var annualization = math.Sqrt(daysPerYear)

// Engine computes RiskResults. It holds no state between calls and is safe for concurrent use.
type Engine struct {
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records computation time.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeRisk scores prices (ascending by time) against the given volumes.
// An empty series yields the zero result. It never fails.
func (e *Engine) ComputeRisk(prices []domain.PricePoint, currentVolume, averageVolume decimal.Decimal) domain.RiskResult {
	start := time.Now()
	defer func() {
		e.metrics.ObserveRiskCompute(time.Since(start))
	}()

	if len(prices) == 0 {
		return domain.RiskResult{PriceHistory: []domain.PricePoint{}}
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Price.InexactFloat64()
	}
	returns := logReturns(closes)

	volatility := volatilityScore(returns)
	trend := trendScore(closes)
	volume := volumeScore(closes, currentVolume.InexactFloat64(), averageVolume.InexactFloat64())
	composite := compositeScore(volatility, trend, volume)

	history := make([]domain.PricePoint, len(prices))
	copy(history, prices)

	return domain.RiskResult{
		VolatilityScore:      round2(volatility),
		TrendScore:           round2(trend),
		VolumeScore:          round2(volume),
		CompositeRiskScore:   round2(composite),
		DownsideRisk:         round2(downsideRisk(returns)),
		MaxDrawdown:          round2(maxDrawdown(closes)),
		SharpeRatio:          round2(sharpeRatio(returns)),
		ValueAtRisk95:        round2(valueAtRisk95(returns)),
		AnnualizedVolatility: round2(annualizedVolatility(returns)),
		PriceHistory:         history,
	}
}

// round2 rounds half to even at two decimals. Non-finite values become 0.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}
