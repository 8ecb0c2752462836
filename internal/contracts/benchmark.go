package contracts

import "time"

// BenchmarkPoint is one day of the benchmark index
type BenchmarkPoint struct {
	Date             time.Time `json:"date"`
	Value            float64   `json:"value"`
	ChangePercent    float64   `json:"change_percent"`    // vs previous point
	CumulativeReturn float64   `json:"cumulative_return"` // percent from series start
}

// TimeSeriesPoint is one day of the strategy equity curve
type TimeSeriesPoint struct {
	Date             time.Time `json:"date"`
	CumulativeReturn float64   `json:"cumulative_return"` // percent
	DailyReturn      float64   `json:"daily_return"`      // percent contributed that day
	EquityValue      float64   `json:"equity_value"`
	TradeCount       int       `json:"trade_count"` // exits booked that day

	// Aligned mode only
	BenchmarkReturn  float64 `json:"benchmark_return,omitempty"`  // cumulative, percent
	BenchmarkChange  float64 `json:"benchmark_change,omitempty"`  // that day, percent
	HasBenchmarkData bool    `json:"-"`
}

// IsTradeDay reports whether any exit was booked on this point
func (p *TimeSeriesPoint) IsTradeDay() bool {
	return p.TradeCount > 0
}
