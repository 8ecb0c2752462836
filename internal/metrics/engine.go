package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/series"
)

// Engine derives PortfolioMetrics from trades and their equity curve
// ⭐ SSOT: every summary statistic is computed here
type Engine struct {
	riskFreeRate float64 // annual, fraction
}

// NewEngine creates an engine using the given annual risk-free rate (0.03 = 3%)
func NewEngine(riskFreeRate float64) *Engine {
	return &Engine{riskFreeRate: riskFreeRate}
}

// Input is one window's worth of data
type Input struct {
	Trades    []contracts.TradeRecord
	Series    []contracts.TimeSeriesPoint
	Benchmark *series.Benchmark // may be nil
}

// Compute returns the metrics for in. An empty trade list yields zero metrics.
func (e *Engine) Compute(in Input) contracts.PortfolioMetrics {
	var m contracts.PortfolioMetrics

	trades := sortByExit(in.Trades)
	if len(trades) == 0 {
		m.DrawdownMethod = contracts.DrawdownNone
		return m
	}

	m.StartDate, m.EndDate = dateSpan(trades)

	e.tradeStats(&m, trades)

	m.TotalReturn = totalReturn(trades, in.Series)

	returns := tradeReturns(trades)
	tpy := TradesPerYear(len(trades), m.StartDate, m.EndDate)
	m.TradesPerYear = tpy
	m.AnnualizedReturn = Mean(returns) * tpy * 100
	m.Volatility = StdDev(returns) * math.Sqrt(tpy) * 100
	m.SharpeRatio = Sharpe(returns, tpy, e.riskFreeRate)
	m.SortinoRatio = Sortino(returns, tpy, e.riskFreeRate)

	applyDrawdown(&m, trades, in.Series)

	if in.Benchmark.Len() >= 2 {
		m.BenchmarkReturn = in.Benchmark.TotalReturn()
		m.ExcessReturn = m.TotalReturn - m.BenchmarkReturn
	}
	// Same-day exits share one DailyReturn, so alpha annualizes per trade day
	dpy := TradesPerYear(TradeDays(in.Series), m.StartDate, m.EndDate)
	m.Alpha, m.Beta = AlphaBeta(in.Series, dpy)

	return m
}

func (e *Engine) tradeStats(m *contracts.PortfolioMetrics, trades []contracts.TradeRecord) {
	var sumReturn, sumWin, sumLoss float64
	var grossProfit, grossLoss float64
	var holding int
	var winStreak, lossStreak int

	for _, t := range trades {
		sumReturn += t.PnLPercent
		holding += t.HoldingDays

		switch {
		case t.IsWin():
			m.WinningTrades++
			sumWin += t.PnLPercent
			grossProfit += t.PortfolioImpact
			if m.WinningTrades == 1 || t.PnLPercent > m.LargestWin {
				m.LargestWin = t.PnLPercent
			}
			winStreak++
			lossStreak = 0
		case t.IsLoss():
			m.LosingTrades++
			sumLoss += t.PnLPercent
			grossLoss += math.Abs(t.PortfolioImpact)
			if m.LosingTrades == 1 || t.PnLPercent < m.LargestLoss {
				m.LargestLoss = t.PnLPercent
			}
			lossStreak++
			winStreak = 0
		default:
			winStreak, lossStreak = 0, 0
		}

		if winStreak > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = winStreak
		}
		if lossStreak > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = lossStreak
		}
	}

	n := float64(len(trades))
	m.TotalTrades = len(trades)
	m.WinRate = float64(m.WinningTrades) / n * 100
	m.AverageReturn = sumReturn / n
	m.AverageHoldingDays = float64(holding) / n

	if m.WinningTrades > 0 {
		m.AverageWin = sumWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = sumLoss / float64(m.LosingTrades)
	}

	// No losing trades: reported as 0 rather than +Inf
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	lossRate := float64(m.LosingTrades) / n
	m.Expectancy = m.WinRate/100*m.AverageWin + lossRate*m.AverageLoss
}

// totalReturn prefers the equity curve's final value; without a curve it
// is the plain sum of impacts, which is the same number by construction
func totalReturn(trades []contracts.TradeRecord, points []contracts.TimeSeriesPoint) float64 {
	if len(points) > 0 {
		return points[len(points)-1].CumulativeReturn
	}
	total := 0.0
	for _, t := range trades {
		total += t.ImpactPercent()
	}
	return total
}

// tradeReturns is the trade-event return series (fractions of capital)
func tradeReturns(trades []contracts.TradeRecord) []float64 {
	r := make([]float64, len(trades))
	for i, t := range trades {
		r[i] = t.PortfolioImpact
	}
	return r
}

// dateSpan runs from the earliest entry to the latest exit
func dateSpan(trades []contracts.TradeRecord) (first, last time.Time) {
	for i, t := range trades {
		if i == 0 || t.EntryDate.Before(first) {
			first = t.EntryDate
		}
		if i == 0 || t.ExitDate.After(last) {
			last = t.ExitDate
		}
	}
	return contracts.DateOnly(first), contracts.DateOnly(last)
}

func sortByExit(trades []contracts.TradeRecord) []contracts.TradeRecord {
	sorted := make([]contracts.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitDate.Before(sorted[j].ExitDate)
	})
	return sorted
}
