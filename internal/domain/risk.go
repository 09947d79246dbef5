package domain

// RiskResult output of the risk engine. Scores are in [0, 100];
// every numeric field is rounded to two decimals.
type RiskResult struct {
	VolatilityScore    float64 `json:"volatilityScore"`
	TrendScore         float64 `json:"trendScore"`
	VolumeScore        float64 `json:"volumeScore"`
	CompositeRiskScore float64 `json:"compositeRiskScore"`

	// DownsideRisk annualized deviation of negative returns, percent.
	DownsideRisk float64 `json:"downsideRisk"`
	// MaxDrawdown largest peak-to-trough decline, percent.
	MaxDrawdown float64 `json:"maxDrawdown"`
	// SharpeRatio annualized, zero risk-free rate.
	SharpeRatio float64 `json:"sharpeRatio"`
	// ValueAtRisk95 annualized 5th percentile loss, positive percent.
	ValueAtRisk95 float64 `json:"valueAtRisk95"`
	// AnnualizedVolatility percent.
	AnnualizedVolatility float64 `json:"annualizedVolatility"`

	PriceHistory []PricePoint `json:"priceHistory"`
}
