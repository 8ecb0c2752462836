package metrics

import (
	"github.com/crestline/perf/internal/contracts"
)

// PositionDrawdown is the worst per-trade drawdown scaled by exposure,
// percent. ok is false when no trade carries a drawdown figure.
func PositionDrawdown(trades []contracts.TradeRecord) (float64, bool) {
	worst := 0.0
	found := false
	for _, t := range trades {
		if !t.HasDrawdown {
			continue
		}
		found = true
		if dd := t.MaxDrawdown * t.Exposure; dd > worst {
			worst = dd
		}
	}
	return worst, found
}

// EquityDrawdown is the largest peak-to-trough decline of the equity curve,
// percent of the peak. The curve starts at 100% of capital.
func EquityDrawdown(points []contracts.TimeSeriesPoint) float64 {
	peak := 1.0
	worst := 0.0
	for _, p := range points {
		equity := 1 + p.CumulativeReturn/100
		if equity > peak {
			peak = equity
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - equity) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// applyDrawdown reports both measures and picks the headline one: position
// drawdown when the log records it, the equity curve otherwise
func applyDrawdown(m *contracts.PortfolioMetrics, trades []contracts.TradeRecord, points []contracts.TimeSeriesPoint) {
	position, hasPosition := PositionDrawdown(trades)
	m.PositionDrawdown = position
	m.EquityDrawdown = EquityDrawdown(points)

	switch {
	case hasPosition:
		m.MaxDrawdown = m.PositionDrawdown
		m.DrawdownMethod = contracts.DrawdownPosition
	case len(points) > 0:
		m.MaxDrawdown = m.EquityDrawdown
		m.DrawdownMethod = contracts.DrawdownEquityCurve
	default:
		m.DrawdownMethod = contracts.DrawdownNone
	}
}
