package series

import (
	"sort"
	"time"

	"github.com/crestline/perf/internal/contracts"
)

// Mode names how the equity curve calendar was chosen
type Mode string

const (
	ModeBenchmarkAligned Mode = "benchmark_aligned"
	ModeTradeOnly        Mode = "trade_only"
)

// Builder folds trade impacts into a cumulative equity curve
// ⭐ SSOT: time-series construction lives here
type Builder struct {
	startingCapital float64
}

// NewBuilder creates a builder with the given starting capital
func NewBuilder(startingCapital float64) *Builder {
	return &Builder{startingCapital: startingCapital}
}

// Build aligns to the benchmark calendar when one is available and falls
// back to trade-only mode otherwise
func (b *Builder) Build(trades []contracts.TradeRecord, bench *Benchmark) ([]contracts.TimeSeriesPoint, Mode) {
	if bench.Len() == 0 {
		return b.BuildTradeOnly(trades), ModeTradeOnly
	}
	return b.BuildAligned(trades, bench), ModeBenchmarkAligned
}

// BuildTradeOnly emits one point per distinct exit date
func (b *Builder) BuildTradeOnly(trades []contracts.TradeRecord) []contracts.TimeSeriesPoint {
	sorted := sortByExit(trades)

	points := make([]contracts.TimeSeriesPoint, 0, len(sorted))
	cumulative := 0.0

	for i := 0; i < len(sorted); {
		day := contracts.DateOnly(sorted[i].ExitDate)
		daily := 0.0
		count := 0

		for ; i < len(sorted) && contracts.DateOnly(sorted[i].ExitDate).Equal(day); i++ {
			daily += sorted[i].ImpactPercent()
			count++
		}

		cumulative += daily
		points = append(points, b.point(day, daily, cumulative, count))
	}

	return points
}

// BuildAligned walks the benchmark calendar. Each trade is booked on the
// first trading day on or after its exit; exits past the last trading day
// get their own trailing points so no impact is dropped.
func (b *Builder) BuildAligned(trades []contracts.TradeRecord, bench *Benchmark) []contracts.TimeSeriesPoint {
	days := bench.Points()
	daily := make([]float64, len(days))
	counts := make([]int, len(days))

	var trailing []contracts.TradeRecord

	for _, t := range trades {
		exit := contracts.DateOnly(t.ExitDate)
		idx := sort.Search(len(days), func(i int) bool {
			return !days[i].Date.Before(exit)
		})
		if idx == len(days) {
			trailing = append(trailing, t)
			continue
		}
		daily[idx] += t.ImpactPercent()
		counts[idx]++
	}

	points := make([]contracts.TimeSeriesPoint, 0, len(days)+len(trailing))
	cumulative := 0.0

	for i, d := range days {
		cumulative += daily[i]
		p := b.point(d.Date, daily[i], cumulative, counts[i])
		p.BenchmarkReturn = d.CumulativeReturn
		p.BenchmarkChange = d.ChangePercent
		p.HasBenchmarkData = true
		points = append(points, p)
	}

	for _, p := range b.BuildTradeOnly(trailing) {
		cumulative += p.DailyReturn
		points = append(points, b.point(p.Date, p.DailyReturn, cumulative, p.TradeCount))
	}

	return points
}

func (b *Builder) point(date time.Time, daily, cumulative float64, count int) contracts.TimeSeriesPoint {
	return contracts.TimeSeriesPoint{
		Date:             date,
		DailyReturn:      daily,
		CumulativeReturn: cumulative,
		EquityValue:      b.startingCapital * (1 + cumulative/100),
		TradeCount:       count,
	}
}

func sortByExit(trades []contracts.TradeRecord) []contracts.TradeRecord {
	sorted := make([]contracts.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitDate.Before(sorted[j].ExitDate)
	})
	return sorted
}
