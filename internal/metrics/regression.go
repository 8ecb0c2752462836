package metrics

import (
	"github.com/crestline/perf/internal/contracts"
)

// TradeDays counts the points with at least one exit
func TradeDays(points []contracts.TimeSeriesPoint) int {
	n := 0
	for i := range points {
		if points[i].IsTradeDay() {
			n++
		}
	}
	return n
}

// AlphaBeta regresses trade-day strategy returns on the same-day benchmark
// change. Beta is cov/var; alpha is the per-day intercept annualized by
// tradeDaysPerYear (percent). Both are 0 with fewer than two paired days
// or a flat benchmark.
func AlphaBeta(points []contracts.TimeSeriesPoint, tradeDaysPerYear float64) (alpha, beta float64) {
	var strat, bench []float64
	for _, p := range points {
		if !p.IsTradeDay() || !p.HasBenchmarkData {
			continue
		}
		strat = append(strat, p.DailyReturn)
		bench = append(bench, p.BenchmarkChange)
	}
	if len(strat) < 2 {
		return 0, 0
	}

	ms, mb := Mean(strat), Mean(bench)
	var cov, variance float64
	for i := range strat {
		cov += (strat[i] - ms) * (bench[i] - mb)
		variance += (bench[i] - mb) * (bench[i] - mb)
	}
	if variance == 0 {
		return 0, 0
	}

	beta = cov / variance
	intercept := ms - beta*mb
	if tradeDaysPerYear > 0 {
		return intercept * tradeDaysPerYear, beta
	}
	return intercept, beta
}
