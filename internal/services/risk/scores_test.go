package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeScore(t *testing.T) {
	tests := []struct {
		name                      string
		volatility, trend, volume float64
		expected                  float64
	}{
		{name: "all high amplified by 20%", volatility: 80, trend: 80, volume: 80, expected: 96},
		{name: "amplification clamps at 100", volatility: 100, trend: 100, volume: 100, expected: 100},
		{name: "base weights", volatility: 50, trend: 50, volume: 40, expected: 47},
		{name: "volatility override", volatility: 76, trend: 40, volume: 40, expected: 58},
		{name: "volatility at threshold keeps base weights", volatility: 75, trend: 40, volume: 40, expected: 54},
		{name: "trend override", volatility: 40, trend: 81, volume: 40, expected: 58.45},
		{name: "volume override", volatility: 40, trend: 40, volume: 76, expected: 54.4},
		// volatility override wins, two scores above 70
		{name: "two high amplified by 10%", volatility: 90, trend: 72, volume: 20, expected: (45 + 18 + 5) * 1.10},
		{name: "all low dampened", volatility: 20, trend: 10, volume: 25, expected: (8 + 3 + 7.5) * 0.90},
		{name: "one low score is not dampened", volatility: 20, trend: 10, volume: 30, expected: 8 + 3 + 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, compositeScore(tt.volatility, tt.trend, tt.volume), 1e-9)
		})
	}
}

func TestVolumeScore(t *testing.T) {
	flat := []float64{100, 100, 100, 100, 100, 100, 100}
	week := func(last float64) []float64 {
		return []float64{100, 100, 100, 100, 100, 100, last}
	}

	tests := []struct {
		name     string
		prices   []float64
		current  float64
		average  float64
		expected float64
	}{
		{name: "no average volume", prices: flat, current: 10, average: 0, expected: 50},
		{name: "panic selling", prices: week(90), current: 2, average: 1, expected: 80},
		{name: "weak rally", prices: week(110), current: 0.4, average: 1, expected: 66},
		// also matches the illiquid rule; the weak rally rule comes first
		{name: "weak rally shadows illiquid", prices: week(110), current: 0.2, average: 1, expected: 78},
		{name: "illiquid", prices: flat, current: 0.1, average: 1, expected: 85},
		{name: "volume spike", prices: flat, current: 5, average: 1, expected: 75},
		{name: "spike capped", prices: flat, current: 100, average: 1, expected: 100},
		{name: "overheating rally", prices: week(120), current: 2, average: 1, expected: 52.5},
		{name: "normal range", prices: flat, current: 1.5, average: 1, expected: 40},
		{name: "short series has no price change", prices: []float64{100, 50}, current: 0.4, average: 1, expected: 42},
		{name: "zero reference price", prices: []float64{0, 1, 1, 1, 1, 1, 2}, current: 1, average: 1, expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, volumeScore(tt.prices, tt.current, tt.average), 1e-9)
		})
	}
}

func TestScoreMomentum(t *testing.T) {
	tests := []struct {
		m        float64
		expected float64
	}{
		{0, 0},
		{0.02, 8},
		{0.05, 20},
		{0.10, 35},
		{0.15, 50},
		{0.20, 60},
		{0.30, 80},
		{0.35, 90},
		{0.50, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, scoreMomentum(tt.m), 1e-9, "m=%v", tt.m)
	}
}

func TestTrendScore(t *testing.T) {
	assert.Equal(t, 50.0, trendScore([]float64{1, 2, 3, 4, 5, 6}), "fewer than 7 points is neutral")
	assert.Equal(t, 50.0, trendScore([]float64{0, 0, 0, 0, 0, 0, 0}))

	// last week flat at 130 against a 30 point mean of 107: momentum 0.2150
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
		if i >= 23 {
			prices[i] = 130
		}
	}
	avg := (23*100.0 + 7*130.0) / 30
	m := (130 - avg) / avg
	assert.InDelta(t, 50+(m-0.15)*200, trendScore(prices), 1e-9)

	// a crash scores like a rally of the same size
	down := make([]float64, 30)
	for i := range down {
		down[i] = 100
		if i >= 23 {
			down[i] = 70
		}
	}
	assert.Greater(t, trendScore(down), 50.0)
}

func TestScoreVolatility(t *testing.T) {
	tests := []struct {
		v        float64
		expected float64
	}{
		{0, 0},
		{0.25, 25},
		{0.5, 50},
		{0.75, 62.5},
		{1.0, 75},
		{2.0, 100},
		{5.0, 100},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, scoreVolatility(tt.v), 1e-9, "v=%v", tt.v)
	}

	assert.Equal(t, 50.0, volatilityScore([]float64{0.1}), "one return is neutral")
	assert.Equal(t, 50.0, volatilityScore(nil))
}

func TestLogReturns(t *testing.T) {
	assert.Nil(t, logReturns([]float64{100}))

	r := logReturns([]float64{100, 0, 100, 110, -5, 121})
	// 100->0, 0->100, 110->-5 and -5->121 are skipped
	assert.Len(t, r, 1)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
}

func TestAdvancedMetrics(t *testing.T) {
	t.Run("sample deviation", func(t *testing.T) {
		assert.InDelta(t, math.Sqrt(2.5), sampleStdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
	})

	t.Run("annualized volatility", func(t *testing.T) {
		returns := []float64{0.01, -0.01, 0.02, -0.02}
		assert.InDelta(t, sampleStdDev(returns)*math.Sqrt(365)*100, annualizedVolatility(returns), 1e-9)
		assert.Equal(t, 0.0, annualizedVolatility([]float64{0.1}))
	})

	t.Run("downside risk needs two negative returns", func(t *testing.T) {
		assert.Equal(t, 0.0, downsideRisk([]float64{0.1, 0.2, -0.1}))
		negative := []float64{-0.01, -0.03}
		assert.InDelta(t, sampleStdDev(negative)*math.Sqrt(365)*100, downsideRisk([]float64{0.5, -0.01, 0.2, -0.03}), 1e-9)
	})

	t.Run("sharpe ratio", func(t *testing.T) {
		returns := []float64{0.01, 0.02, 0.03}
		assert.InDelta(t, 0.02/0.01*math.Sqrt(365), sharpeRatio(returns), 1e-9)
		assert.Equal(t, 0.0, sharpeRatio([]float64{0.01, 0.01}))
		assert.Equal(t, 0.0, sharpeRatio([]float64{0.01}))
	})

	t.Run("value at risk", func(t *testing.T) {
		returns := make([]float64, 0, 21)
		for i := 0; i < 19; i++ {
			returns = append(returns, 0.01)
		}
		returns = append(returns, -0.05, -0.03)
		// floor(0.05*21) = 1, the second smallest return
		assert.InDelta(t, 0.03*math.Sqrt(365)*100, valueAtRisk95(returns), 1e-9)
		assert.Equal(t, 0.0, valueAtRisk95(returns[:19]))
	})
}
