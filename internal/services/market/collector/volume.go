package collector

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
)

// candle is the part of a kline the risk pipeline uses.
type candle struct {
	OpenTime int64
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// sortCandles orders candles by open time and keeps the last occurrence of a duplicate time.
func sortCandles(candles []candle) []candle {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})

	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].OpenTime == c.OpenTime {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// sortPoints is sortCandles for bare series.
func sortPoints(points []domain.PricePoint) []domain.PricePoint {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Timestamp == p.Timestamp {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// candleVolumes derives volume figures from ascending candles whose last one is
// still open: current is the last completed candle, average spans all completed
// candles. A single candle is used for both.
func candleVolumes(candles []candle) (current, average decimal.Decimal) {
	switch len(candles) {
	case 0:
		return decimal.Zero, decimal.Zero
	case 1:
		return candles[0].Volume, candles[0].Volume
	}

	completed := candles[:len(candles)-1]
	sum := decimal.Zero
	for _, c := range completed {
		sum = sum.Add(c.Volume)
	}

	return completed[len(completed)-1].Volume, sum.Div(decimal.NewFromInt(int64(len(completed))))
}

// seriesVolumes takes the last value as current and the mean of all values as average.
func seriesVolumes(volumes []decimal.Decimal) (current, average decimal.Decimal) {
	if len(volumes) == 0 {
		return decimal.Zero, decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range volumes {
		sum = sum.Add(v)
	}

	return volumes[len(volumes)-1], sum.Div(decimal.NewFromInt(int64(len(volumes))))
}

func candlePrices(candles []candle) []domain.PricePoint {
	prices := make([]domain.PricePoint, len(candles))
	for i, c := range candles {
		prices[i] = domain.PricePoint{Timestamp: c.OpenTime, Price: c.Close}
	}
	return prices
}
