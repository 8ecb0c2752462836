package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/perf/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func closed(ticker, entry, exit string, pnl, exposure float64) contracts.TradeRecord {
	t := contracts.TradeRecord{
		Ticker:     ticker,
		EntryDate:  day(entry),
		ExitDate:   day(exit),
		PnLPercent: pnl,
		Exposure:   exposure,
	}
	t.Derive()
	return t
}

func sumImpact(trades []contracts.TradeRecord) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.ImpactPercent()
	}
	return total
}

func sampleBenchmark() *Benchmark {
	return NewBenchmark([]contracts.BenchmarkPoint{
		{Date: day("2024-01-05"), Value: 110},
		{Date: day("2024-01-02"), Value: 100},
		{Date: day("2024-01-03"), Value: 105},
		{Date: day("2024-01-04"), Value: 99},
		{Date: day("2024-01-04"), Value: 104},
	})
}

func TestNewBenchmark(t *testing.T) {
	b := sampleBenchmark()

	require.Equal(t, 4, b.Len())
	pts := b.Points()
	assert.Equal(t, day("2024-01-02"), pts[0].Date)
	assert.InDelta(t, 104.0, pts[2].Value, 1e-9)
	assert.Zero(t, pts[0].ChangePercent)
	assert.InDelta(t, 5.0, pts[1].ChangePercent, 1e-9)
	assert.InDelta(t, 10.0, b.TotalReturn(), 1e-9)

	change, ok := b.ChangeOn(day("2024-01-03"))
	assert.True(t, ok)
	assert.InDelta(t, 5.0, change, 1e-9)

	_, ok = b.ChangeOn(day("2024-01-06"))
	assert.False(t, ok)
}

func TestBenchmark_Slice(t *testing.T) {
	w := sampleBenchmark().Slice(day("2024-01-03"), day("2024-01-05"))

	require.Equal(t, 3, w.Len())
	assert.Zero(t, w.Points()[0].CumulativeReturn)
	assert.InDelta(t, 5.0, w.Points()[0].ChangePercent, 1e-9) // keeps its own day change
	assert.InDelta(t, (110.0/105-1)*100, w.TotalReturn(), 1e-9)

	// Source is untouched
	assert.InDelta(t, 10.0, sampleBenchmark().TotalReturn(), 1e-9)
}

func TestBenchmark_ReturnBetween(t *testing.T) {
	b := sampleBenchmark()

	r, ok := b.ReturnBetween(time.Time{}, time.Time{})
	assert.True(t, ok)
	assert.InDelta(t, 10.0, r, 1e-9)

	_, ok = b.ReturnBetween(day("2024-01-05"), day("2024-02-01"))
	assert.False(t, ok)
}

func TestNilBenchmarkLen(t *testing.T) {
	var b *Benchmark
	assert.Zero(t, b.Len())
	assert.Zero(t, b.TotalReturn())
}

func TestBuildTradeOnly(t *testing.T) {
	trades := []contracts.TradeRecord{
		closed("BBB", "2024-01-02", "2024-01-04", -5, 0.2),
		closed("AAA", "2024-01-01", "2024-01-03", 10, 0.2),
		closed("CCC", "2024-01-02", "2024-01-04", 4, 0.5),
	}

	points, mode := NewBuilder(100000).Build(trades, nil)
	assert.Equal(t, ModeTradeOnly, mode)
	require.Len(t, points, 2)

	assert.Equal(t, day("2024-01-03"), points[0].Date)
	assert.InDelta(t, 2.0, points[0].DailyReturn, 1e-9)
	assert.Equal(t, 1, points[0].TradeCount)

	assert.Equal(t, 2, points[1].TradeCount)
	assert.InDelta(t, 1.0, points[1].DailyReturn, 1e-9)
	assert.InDelta(t, 3.0, points[1].CumulativeReturn, 1e-9)
	assert.InDelta(t, 103000.0, points[1].EquityValue, 1e-6)
}

func TestBuildAligned(t *testing.T) {
	trades := []contracts.TradeRecord{
		closed("AAA", "2024-01-01", "2024-01-03", 10, 0.2),
		closed("BBB", "2023-12-20", "2023-12-30", 2, 0.5), // before calendar: first day
		closed("CCC", "2024-01-01", "2024-01-06", 4, 0.5), // weekend gap: trailing
		closed("DDD", "2024-01-01", "2024-01-08", -2, 0.5),
	}

	points, mode := NewBuilder(100000).Build(trades, sampleBenchmark())
	assert.Equal(t, ModeBenchmarkAligned, mode)
	require.Len(t, points, 6)

	assert.Equal(t, day("2024-01-02"), points[0].Date)
	assert.InDelta(t, 1.0, points[0].DailyReturn, 1e-9)
	assert.True(t, points[0].HasBenchmarkData)

	assert.InDelta(t, 2.0, points[1].DailyReturn, 1e-9)
	assert.InDelta(t, 5.0, points[1].BenchmarkReturn, 1e-9)
	assert.False(t, points[2].IsTradeDay())

	assert.Equal(t, day("2024-01-06"), points[4].Date)
	assert.False(t, points[4].HasBenchmarkData)
	assert.Equal(t, day("2024-01-08"), points[5].Date)
}

func TestBuild_CumulativeEqualsSumOfImpacts(t *testing.T) {
	trades := []contracts.TradeRecord{
		closed("A", "2024-01-01", "2024-01-02", 3.3, 0.12),
		closed("B", "2024-01-01", "2024-01-03", -1.7, 0.4),
		closed("C", "2024-01-02", "2024-01-03", 8.1, 0.05),
		closed("D", "2024-01-03", "2024-01-05", -0.4, 1),
		closed("E", "2024-01-04", "2024-01-09", 12, 0.3),
	}
	want := sumImpact(trades)

	b := NewBuilder(50000)
	for name, points := range map[string][]contracts.TimeSeriesPoint{
		"trade only": b.BuildTradeOnly(trades),
		"aligned":    b.BuildAligned(trades, sampleBenchmark()),
	} {
		require.NotEmpty(t, points, name)
		last := points[len(points)-1]
		assert.InDelta(t, want, last.CumulativeReturn, 1e-9, name)
		assert.InDelta(t, 50000*(1+want/100), last.EquityValue, 1e-6, name)

		count := 0
		for _, p := range points {
			count += p.TradeCount
		}
		assert.Equal(t, len(trades), count, name)
	}
}
