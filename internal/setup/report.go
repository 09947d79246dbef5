package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/cryptorisk/internal/domain"
	"github.com/vadiminshakov/cryptorisk/pkg/indicators"
)

var (
	lowRisk  = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#73F59F"}
	midRisk  = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F5D273"}
	highRisk = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#F25D5D"}

	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Width(24)
)

// Report is everything the terminal report shows.
type Report struct {
	AssetID   string
	Days      int
	Source    string
	Result    domain.RiskResult
	Technical *indicators.Summary
}

// RiskLevel buckets a composite score.
func RiskLevel(score float64) string {
	switch {
	case score >= 70:
		return "HIGH"
	case score >= 40:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// assetLabel shows catalog assets by name and ticker, anything else by id.
func assetLabel(assetID string) string {
	if a, ok := domain.AssetByID(assetID); ok {
		return fmt.Sprintf("%s (%s)", a.Name, a.Ticker)
	}
	return strings.ToUpper(assetID)
}

func levelColor(level string) lipgloss.AdaptiveColor {
	switch level {
	case "HIGH":
		return highRisk
	case "MEDIUM":
		return midRisk
	default:
		return lowRisk
	}
}

// Render formats r for a terminal.
func (r Report) Render() string {
	res := r.Result
	level := RiskLevel(res.CompositeRiskScore)

	title := headerStyle.Render(fmt.Sprintf("%s · %dd · %s", assetLabel(r.AssetID), r.Days, r.Source))
	composite := lipgloss.NewStyle().
		Bold(true).
		Foreground(levelColor(level)).
		Render(fmt.Sprintf("Composite risk %.2f (%s)", res.CompositeRiskScore, level))

	scores := rows(
		[2]string{"Volatility score", fmt.Sprintf("%.2f", res.VolatilityScore)},
		[2]string{"Trend score", fmt.Sprintf("%.2f", res.TrendScore)},
		[2]string{"Volume score", fmt.Sprintf("%.2f", res.VolumeScore)},
	)
	metrics := rows(
		[2]string{"Annualized volatility", fmt.Sprintf("%.2f%%", res.AnnualizedVolatility)},
		[2]string{"Downside risk", fmt.Sprintf("%.2f%%", res.DownsideRisk)},
		[2]string{"Max drawdown", fmt.Sprintf("%.2f%%", res.MaxDrawdown)},
		[2]string{"Sharpe ratio", fmt.Sprintf("%.2f", res.SharpeRatio)},
		[2]string{"Value at risk (95%)", fmt.Sprintf("%.2f%%", res.ValueAtRisk95)},
		[2]string{"Price points", fmt.Sprintf("%d", len(res.PriceHistory))},
	)

	blocks := []string{title, composite, boxStyle.Render(scores), boxStyle.Render(metrics)}
	if r.Technical != nil {
		blocks = append(blocks, boxStyle.Render(technicalRows(*r.Technical)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func technicalRows(s indicators.Summary) string {
	value := func(d interface {
		String() string
	}, valid bool) string {
		if !valid {
			return "n/a"
		}
		return d.String()
	}

	return rows(
		[2]string{fmt.Sprintf("EMA%d", indicators.FastEMAPeriod), value(s.FastEMA.Decimal.Round(2), s.FastEMA.Valid)},
		[2]string{fmt.Sprintf("EMA%d", indicators.SlowEMAPeriod), value(s.SlowEMA.Decimal.Round(2), s.SlowEMA.Valid)},
		[2]string{"MACD", value(s.MACD.Decimal.Round(4), s.MACD.Valid)},
		[2]string{fmt.Sprintf("RSI%d", indicators.RSIPeriod), value(s.RSI.Decimal.Round(2), s.RSI.Valid)},
		[2]string{"EMA trend", s.Trend()},
	)
}

func rows(pairs ...[2]string) string {
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = labelStyle.Render(p[0]) + p[1]
	}
	return strings.Join(lines, "\n")
}
