// Package domain defines the core data structures of the risk service.
package domain

import "github.com/shopspring/decimal"

// PricePoint single observation of an asset price.
type PricePoint struct {
	// Timestamp unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Price quoted in USD (or USDT for exchange sources).
	Price decimal.Decimal `json:"price"`
}

// MarketData price series plus volume figures for one asset and window.
// Values handed out by the data sources are shared through caches and must not be mutated.
type MarketData struct {
	// Prices ascending by time, unique timestamps.
	Prices []PricePoint
	// CurrentVolume volume of the most recently completed period.
	CurrentVolume decimal.Decimal
	// AverageVolume mean of completed-period volumes in the window.
	AverageVolume decimal.Decimal
	// Source name of the provider that served the data.
	Source string
}

// Empty reports whether there is no price data.
func (m *MarketData) Empty() bool {
	return m == nil || len(m.Prices) == 0
}

// Window lookback length in days accepted by the analysis.
type Window int

const (
	Window7d  Window = 7
	Window30d Window = 30
	Window90d Window = 90

	DefaultWindow = Window30d
)

// ParseWindow maps days onto a supported window, falling back to DefaultWindow.
// The second result is false when the fallback was used.
func ParseWindow(days int) (Window, bool) {
	switch Window(days) {
	case Window7d, Window30d, Window90d:
		return Window(days), true
	default:
		return DefaultWindow, false
	}
}

// Days returns the window length.
func (w Window) Days() int {
	return int(w)
}
