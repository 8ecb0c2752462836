package contracts

import "time"

// DrawdownMethod names how MaxDrawdown was derived
type DrawdownMethod string

const (
	DrawdownPosition    DrawdownMethod = "position"
	DrawdownEquityCurve DrawdownMethod = "equity_curve"
	DrawdownNone        DrawdownMethod = "none"
)

// PortfolioMetrics holds aggregate statistics for one window
// ⭐ SSOT: Metrics engine output
type PortfolioMetrics struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Returns (percent)
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`

	// Trades
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	AverageReturn        float64 `json:"average_return"`
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"`
	ProfitFactor         float64 `json:"profit_factor"`
	Expectancy           float64 `json:"expectancy"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	AverageHoldingDays   float64 `json:"average_holding_days"`
	TradesPerYear        float64 `json:"trades_per_year"`

	// Risk
	SharpeRatio      float64        `json:"sharpe_ratio"`
	SortinoRatio     float64        `json:"sortino_ratio"`
	MaxDrawdown      float64        `json:"max_drawdown"` // positive percent
	DrawdownMethod   DrawdownMethod `json:"drawdown_method"`
	PositionDrawdown float64        `json:"position_drawdown"`
	EquityDrawdown   float64        `json:"equity_drawdown"`

	// Benchmark comparison
	BenchmarkReturn float64 `json:"benchmark_return"`
	ExcessReturn    float64 `json:"excess_return"`
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
}

// IsOutperforming checks if the strategy beat the benchmark over the window
func (m *PortfolioMetrics) IsOutperforming() bool {
	return m.ExcessReturn > 0
}
