package risk

import (
	"math"
	"sort"
)

// logReturns returns ln(p[i]/p[i-1]) for consecutive positive prices.
// Pairs touching a non-positive price are skipped.
func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev uses Bessel's correction; callers guarantee len(xs) >= 2.
func sampleStdDev(xs []float64) float64 {
	m := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// annualizedVolatility in percent.
func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return sampleStdDev(returns) * annualization * 100
}

// downsideRisk is annualizedVolatility over negative returns only.
func downsideRisk(returns []float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	return annualizedVolatility(negative)
}

// maxDrawdown is the largest fall from a running peak, in percent.
func maxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	worst := 0.0
	peak := prices[0]
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// sharpeRatio annualized with a zero risk-free rate.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := sampleStdDev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * annualization
}

const minVaRReturns = 20

// valueAtRisk95 is the 5th percentile return, annualized, as a positive percent.
func valueAtRisk95(returns []float64) float64 {
	if len(returns) < minVaRReturns {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor(0.05 * float64(len(sorted))))
	return math.Abs(sorted[idx] * annualization * 100)
}
