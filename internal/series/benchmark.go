package series

import (
	"sort"
	"time"

	"github.com/crestline/perf/internal/contracts"
)

// Benchmark is a sorted, de-duplicated index series with derived returns
// ⭐ SSOT: benchmark return math lives here
type Benchmark struct {
	points []contracts.BenchmarkPoint
	index  map[time.Time]int
}

// NewBenchmark sorts points by date, keeps the last value for duplicate
// dates and computes day-over-day and cumulative returns (percent)
func NewBenchmark(raw []contracts.BenchmarkPoint) *Benchmark {
	sorted := make([]contracts.BenchmarkPoint, len(raw))
	copy(sorted, raw)
	for i := range sorted {
		sorted[i].Date = contracts.DateOnly(sorted[i].Date)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	points := make([]contracts.BenchmarkPoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(points); n > 0 && points[n-1].Date.Equal(p.Date) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}

	return rebase(points, true)
}

// rebase recomputes cumulative returns from the first point. Daily changes
// are recomputed only when withChanges is set; a window slice keeps the
// original day-over-day change of its first day.
func rebase(points []contracts.BenchmarkPoint, withChanges bool) *Benchmark {
	b := &Benchmark{
		points: points,
		index:  make(map[time.Time]int, len(points)),
	}
	if len(points) == 0 {
		return b
	}

	base := points[0].Value
	for i := range points {
		if withChanges {
			if i == 0 {
				points[i].ChangePercent = 0
			} else if prev := points[i-1].Value; prev != 0 {
				points[i].ChangePercent = (points[i].Value/prev - 1) * 100
			}
		}
		if base != 0 {
			points[i].CumulativeReturn = (points[i].Value/base - 1) * 100
		}
		b.index[points[i].Date] = i
	}

	return b
}

// Points returns the series. Callers must not modify it.
func (b *Benchmark) Points() []contracts.BenchmarkPoint {
	return b.points
}

// Len returns the number of trading days
func (b *Benchmark) Len() int {
	if b == nil {
		return 0
	}
	return len(b.points)
}

// Dates returns the trading calendar
func (b *Benchmark) Dates() []time.Time {
	dates := make([]time.Time, len(b.points))
	for i, p := range b.points {
		dates[i] = p.Date
	}
	return dates
}

// Slice restricts the series to [start, end] and rebases cumulative return
// to the first day in the window. A zero start or end leaves that side open.
func (b *Benchmark) Slice(start, end time.Time) *Benchmark {
	window := make([]contracts.BenchmarkPoint, 0, len(b.points))
	for _, p := range b.points {
		if !start.IsZero() && p.Date.Before(contracts.DateOnly(start)) {
			continue
		}
		if !end.IsZero() && p.Date.After(contracts.DateOnly(end)) {
			continue
		}
		window = append(window, p)
	}
	return rebase(window, false)
}

// ChangeOn returns the day-over-day change for date
func (b *Benchmark) ChangeOn(date time.Time) (float64, bool) {
	i, ok := b.index[contracts.DateOnly(date)]
	if !ok {
		return 0, false
	}
	return b.points[i].ChangePercent, true
}

// TotalReturn is the cumulative return of the last point, percent
func (b *Benchmark) TotalReturn() float64 {
	if b.Len() == 0 {
		return 0
	}
	return b.points[len(b.points)-1].CumulativeReturn
}

// ReturnBetween is the percent change from the first day on/after start to
// the last day on/before end. ok is false when the window holds < 2 days.
func (b *Benchmark) ReturnBetween(start, end time.Time) (float64, bool) {
	w := b.Slice(start, end)
	if w.Len() < 2 {
		return 0, false
	}
	return w.TotalReturn(), true
}
