package performance

import (
	"time"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/series"
	"github.com/crestline/perf/pkg/redis"
)

// Query selects a reporting window and optional payload sections
type Query struct {
	Period              contracts.Period
	IncludeClosedTrades bool
	IncludeBenchmark    bool
}

// DefaultQuery is what the stream and the scheduler publish
func DefaultQuery() Query {
	return Query{Period: contracts.PeriodAll, IncludeBenchmark: true}
}

// Key identifies the query in both cache tiers
func (q Query) Key() string {
	return redis.StatisticsKey(string(q.Period), q.IncludeClosedTrades, q.IncludeBenchmark)
}

// Statistics is the display-ready view of one window
type Statistics struct {
	Period    contracts.Period           `json:"period"`
	StartDate time.Time                  `json:"start_date"`
	EndDate   time.Time                  `json:"end_date"`
	Metrics   contracts.PortfolioMetrics `json:"metrics"`

	Series     []contracts.TimeSeriesPoint `json:"series"`
	SeriesMode series.Mode                 `json:"series_mode"`

	Trades    []contracts.TradeRecord    `json:"trades,omitempty"`
	Benchmark []contracts.BenchmarkPoint `json:"benchmark,omitempty"`

	SkippedRows int       `json:"skipped_rows"`
	DataAsOf    time.Time `json:"data_as_of"`
	GeneratedAt time.Time `json:"generated_at"`

	// Stale: computed from an expired dataset after a failed reload.
	// Fallback: no data could be loaded; Metrics are placeholder values.
	Stale    bool `json:"stale"`
	Fallback bool `json:"fallback"`
}
