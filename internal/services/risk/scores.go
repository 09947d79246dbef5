package risk

import "math"

const (
	neutralScore = 50.0

	minTrendPoints = 7
	shortWindow    = 7

	highRisk = 70.0
	lowRisk  = 30.0
)

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// volatilityScore scores the annualized deviation of returns. A series without
// any dispersion (a flat price) carries no signal and scores neutral.
func volatilityScore(returns []float64) float64 {
	if len(returns) < 2 {
		return neutralScore
	}

	sd := sampleStdDev(returns)
	if sd == 0 {
		return neutralScore
	}

	return scoreVolatility(sd * annualization)
}

// scoreVolatility maps annualized volatility v onto 0-100:
// 0..50% linear to 0..50, 50..100% linear to 50..75, above that +25 per 100% up to 100.
func scoreVolatility(v float64) float64 {
	switch {
	case v < 0.5:
		return v * 100
	case v < 1.0:
		return 50 + (v-0.5)*50
	default:
		return math.Min(100, 75+(v-1.0)*25)
	}
}

// trendScore rates the distance between the last week's mean and the window mean.
// Moves in either direction count as risk.
func trendScore(prices []float64) float64 {
	if len(prices) < minTrendPoints {
		return neutralScore
	}

	avgShort := mean(prices[len(prices)-shortWindow:])
	avgWindow := mean(prices)
	if avgWindow == 0 {
		return neutralScore
	}

	return scoreMomentum(math.Abs((avgShort - avgWindow) / avgWindow))
}

func scoreMomentum(m float64) float64 {
	switch {
	case m > 0.30:
		return math.Min(100, 80+(m-0.30)*200)
	case m > 0.15:
		return 50 + (m-0.15)*200
	case m > 0.05:
		return 20 + (m-0.05)*300
	default:
		return m * 400
	}
}

// volumeScore reads the volume ratio in the context of the weekly price change.
// Rules overlap; the first match wins and the order must not change.
func volumeScore(prices []float64, currentVolume, averageVolume float64) float64 {
	if averageVolume <= 0 {
		return neutralScore
	}

	ratio := currentVolume / averageVolume

	priceChange := 0.0
	if n := len(prices); n >= shortWindow {
		weekAgo := prices[n-shortWindow]
		if weekAgo != 0 {
			priceChange = (prices[n-1] - weekAgo) / weekAgo
		}
	}

	var score float64
	switch {
	case priceChange < -0.05 && ratio > 1.5: // panic selling
		score = math.Min(100, 70+(ratio-1.5)*20)
	case priceChange > 0.05 && ratio < 0.5: // rally without volume
		score = math.Min(100, 60+(0.5-ratio)*60)
	case ratio < 0.3: // illiquid
		score = math.Min(100, 65+(0.3-ratio)*100)
	case ratio > 3.0: // spike
		score = math.Min(100, 55+(ratio-3.0)*10)
	case priceChange > 0.10 && ratio > 1.5: // overheating rally
		score = 45 + (ratio-1.5)*15
	default:
		score = 30 + math.Abs(ratio-1.0)*20
	}

	return clamp(score)
}

type weights struct {
	volatility, trend, volume float64
}

var (
	baseWeights        = weights{volatility: 0.40, trend: 0.30, volume: 0.30}
	volatilityHeavy    = weights{volatility: 0.50, trend: 0.25, volume: 0.25}
	trendHeavy         = weights{volatility: 0.30, trend: 0.45, volume: 0.25}
	volumeHeavy        = weights{volatility: 0.35, trend: 0.25, volume: 0.40}
	volatilityOverride = 75.0
	trendOverride      = 80.0
	volumeOverride     = 75.0
)

func selectWeights(volatility, trend, volume float64) weights {
	switch {
	case volatility > volatilityOverride:
		return volatilityHeavy
	case trend > trendOverride:
		return trendHeavy
	case volume > volumeOverride:
		return volumeHeavy
	default:
		return baseWeights
	}
}

// compositeScore weights the sub-scores, then amplifies when several are high
// and dampens when all are low.
func compositeScore(volatility, trend, volume float64) float64 {
	w := selectWeights(volatility, trend, volume)
	composite := clamp(volatility*w.volatility + trend*w.trend + volume*w.volume)

	high := 0
	for _, s := range []float64{volatility, trend, volume} {
		if s > highRisk {
			high++
		}
	}

	switch {
	case high == 3:
		composite *= 1.20
	case high == 2:
		composite *= 1.10
	case volatility < lowRisk && trend < lowRisk && volume < lowRisk:
		composite *= 0.90
	}

	return clamp(composite)
}
