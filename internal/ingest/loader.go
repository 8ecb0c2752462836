package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/series"
	"github.com/crestline/perf/pkg/logger"
)

// Sources names the two input files
type Sources struct {
	Trades         string
	TradesSheet    string
	Benchmark      string
	BenchmarkSheet string
}

// Key identifies a load for caching
func (s Sources) Key() string {
	return fmt.Sprintf("%s#%s|%s#%s", s.Trades, s.TradesSheet, s.Benchmark, s.BenchmarkSheet)
}

// Loader runs fetch → read → parse for both files
// ⭐ SSOT: the only producer of contracts.Dataset
type Loader struct {
	fetcher *Fetcher
	parser  *Parser
	logger  *logger.Logger
	now     func() time.Time
}

// NewLoader creates a new loader
func NewLoader(fetcher *Fetcher, parser *Parser, log *logger.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		parser:  parser,
		logger:  log,
		now:     time.Now,
	}
}

// Load builds a fresh Dataset. A trade-file failure fails the load.
// A benchmark failure is logged and yields an empty benchmark, which
// downstream switches the time series to trade-only mode.
func (l *Loader) Load(ctx context.Context, src Sources) (*contracts.Dataset, error) {
	start := l.now()

	trades, skipped, err := l.LoadTrades(ctx, src.Trades, src.TradesSheet)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	ds := &contracts.Dataset{
		Trades:  trades,
		Skipped: skipped,
	}

	if src.Benchmark != "" {
		points, bSkipped, err := l.LoadBenchmark(ctx, src.Benchmark, src.BenchmarkSheet)
		if err != nil {
			l.logger.WithError(err).WithField("source", src.Benchmark).
				Warn("Benchmark unavailable, continuing without benchmark")
		} else {
			ds.Benchmark = points
		}
		ds.Skipped = append(ds.Skipped, bSkipped...)
	}

	ds.LoadedAt = l.now()

	l.logger.WithFields(map[string]interface{}{
		"trades":    len(ds.Trades),
		"benchmark": len(ds.Benchmark),
		"skipped":   len(ds.Skipped),
		"duration":  ds.LoadedAt.Sub(start),
	}).Info("Dataset loaded")

	return ds, nil
}

// LoadTrades fetches and normalizes the trade log
func (l *Loader) LoadTrades(ctx context.Context, location, sheet string) ([]contracts.TradeRecord, []contracts.SkippedRow, error) {
	table, err := l.table(ctx, location, sheet)
	if err != nil {
		return nil, nil, err
	}
	return l.parser.ParseTrades(table)
}

// LoadBenchmark fetches the benchmark and returns it sorted, de-duplicated,
// with day-over-day and cumulative returns filled in
func (l *Loader) LoadBenchmark(ctx context.Context, location, sheet string) ([]contracts.BenchmarkPoint, []contracts.SkippedRow, error) {
	table, err := l.table(ctx, location, sheet)
	if err != nil {
		return nil, nil, err
	}

	raw, skipped, err := l.parser.ParseBenchmark(table)
	if err != nil {
		return nil, skipped, err
	}

	return series.NewBenchmark(raw).Points(), skipped, nil
}

func (l *Loader) table(ctx context.Context, location, sheet string) (*Table, error) {
	data, err := l.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return ReadTable(data, location, sheet)
}
