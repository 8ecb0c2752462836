package metrics

import (
	"math"
	"time"

	"github.com/crestline/perf/internal/contracts"
)

const daysPerYear = 365.25

// TradesPerYear annualizes a trade count over the calendar span it covers.
// Spans shorter than one day count as one day.
func TradesPerYear(n int, start, end time.Time) float64 {
	if n == 0 {
		return 0
	}
	days := float64(contracts.WholeDaysBetween(start, end))
	if days < 1 {
		days = 1
	}
	return float64(n) / (days / daysPerYear)
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, 0 below two observations
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// Sharpe computes the annualized Sharpe ratio of per-trade returns
// (fractions) given tpy trades per year and an annual risk-free rate.
// Returns 0 when volatility is zero or there are fewer than two trades.
func Sharpe(returns []float64, tpy, riskFree float64) float64 {
	std := StdDev(returns)
	if std == 0 || tpy <= 0 {
		return 0
	}
	annualReturn := Mean(returns) * tpy
	annualVol := std * math.Sqrt(tpy)
	return (annualReturn - riskFree) / annualVol
}

// Sortino is Sharpe with downside deviation (returns below zero) in the
// denominator. Returns 0 when there is no downside.
func Sortino(returns []float64, tpy, riskFree float64) float64 {
	if len(returns) < 2 || tpy <= 0 {
		return 0
	}

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	if downside == 0 {
		return 0
	}

	downsideDev := math.Sqrt(downside/float64(len(returns))) * math.Sqrt(tpy)
	return (Mean(returns)*tpy - riskFree) / downsideDev
}
