// Package indicators computes technical context (EMA, MACD, RSI) over daily closes.
package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
)

// Periods used by Summarize.
const (
	FastEMAPeriod = 7
	SlowEMAPeriod = 20
	RSIPeriod     = 14

	// the MACD line is emitted once the 9 period signal line is primed on
	// top of the 26 period slow EMA
	macdMinPoints = 26 + 9 - 1
)

// Summary holds the latest value of each indicator. A field is invalid when the
// series is too short for its period.
type Summary struct {
	FastEMA decimal.NullDecimal
	SlowEMA decimal.NullDecimal
	MACD    decimal.NullDecimal
	RSI     decimal.NullDecimal
}

// Trend reports "up" when the fast EMA is above the slow EMA, "down" when below
// and "flat" otherwise or when either average is missing.
func (s Summary) Trend() string {
	if !s.FastEMA.Valid || !s.SlowEMA.Valid {
		return "flat"
	}
	switch s.FastEMA.Decimal.Cmp(s.SlowEMA.Decimal) {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}

// Summarize computes the indicators for a price history ordered oldest first.
func Summarize(prices []domain.PricePoint) (Summary, error) {
	if len(prices) < FastEMAPeriod {
		return Summary{}, fmt.Errorf("not enough data points: need at least %d, got %d", FastEMAPeriod, len(prices))
	}

	closes := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		closes[i] = p.Price
	}

	var s Summary

	fast, err := CalculateEMA(closes, FastEMAPeriod)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to calculate EMA%d: %w", FastEMAPeriod, err)
	}
	s.FastEMA = last(fast)

	if slow, err := CalculateEMA(closes, SlowEMAPeriod); err == nil {
		s.SlowEMA = last(slow)
	}
	if macd, err := CalculateMACD(closes); err == nil {
		s.MACD = last(macd)
	}
	if rsi, err := CalculateRSI(closes, RSIPeriod); err == nil {
		s.RSI = last(rsi)
	}

	return s, nil
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	outputChan := ema.Compute(helper.SliceToChan(decimalsToFloat64(closes)))

	return float64ToDecimals(helper.ChanToSlice(outputChan)), nil
}

// CalculateMACD calculates MACD line values.
func CalculateMACD(closes []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(closes) < macdMinPoints {
		return nil, fmt.Errorf("not enough data points for MACD: need at least %d, got %d", macdMinPoints, len(closes))
	}

	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(decimalsToFloat64(closes)))
	// drain signal channel to prevent blocking
	go func() {
		for range signalChan {
		}
	}()

	return float64ToDecimals(helper.ChanToSlice(macdChan)), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	outputChan := rsi.Compute(helper.SliceToChan(decimalsToFloat64(closes)))

	return float64ToDecimals(helper.ChanToSlice(outputChan)), nil
}

func last(values []decimal.Decimal) decimal.NullDecimal {
	if len(values) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(values[len(values)-1])
}

func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		// 0/0 gains over losses on a flat window
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
