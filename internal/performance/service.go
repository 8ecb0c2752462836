package performance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crestline/perf/internal/cache"
	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/ingest"
	"github.com/crestline/perf/internal/metrics"
	"github.com/crestline/perf/internal/series"
	"github.com/crestline/perf/pkg/config"
	"github.com/crestline/perf/pkg/logger"
	"github.com/crestline/perf/pkg/redis"
)

// maxCachedQueries bounds the statistics memo (4 periods × 4 flag combinations)
const maxCachedQueries = 16

// defaultReloadBackoff is how long a failed reload suppresses further
// reload attempts while a stale dataset is being served
const defaultReloadBackoff = 30 * time.Second

// DatasetLoader produces a fresh Dataset. Implemented by *ingest.Loader.
type DatasetLoader interface {
	Load(ctx context.Context, src ingest.Sources) (*contracts.Dataset, error)
}

// Service loads the trade log, computes statistics per window and caches both
// ⭐ SSOT: the only entry point for statistics consumers (API, stream, scheduler, CLI)
type Service struct {
	loader  DatasetLoader
	sources ingest.Sources
	builder *series.Builder
	engine  *metrics.Engine

	datasets *cache.Store[contracts.Dataset]
	stats    *cache.Store[Statistics]
	remote   *redis.Cache
	ttl      time.Duration
	staleTTL time.Duration

	loadMu        sync.Mutex
	failedAt      time.Time // last failed reload, guarded by loadMu
	reloadBackoff time.Duration

	subMu       sync.RWMutex
	subscribers []func(*Statistics)

	logger *logger.Logger
	now    func() time.Time
}

// SourcesFromConfig maps configuration onto loader sources
func SourcesFromConfig(cfg config.DataConfig) ingest.Sources {
	return ingest.Sources{
		Trades:         cfg.TradesSource,
		TradesSheet:    cfg.TradesSheet,
		Benchmark:      cfg.BenchmarkSource,
		BenchmarkSheet: cfg.BenchmarkSheet,
	}
}

// NewService creates a new performance service
func NewService(loader DatasetLoader, cfg config.DataConfig, log *logger.Logger) *Service {
	staleTTL := cfg.StaleTTL
	if staleTTL < cfg.CacheTTL {
		staleTTL = cfg.CacheTTL
	}

	return &Service{
		loader:   loader,
		sources:  SourcesFromConfig(cfg),
		builder:  series.NewBuilder(cfg.StartingCapital),
		engine:   metrics.NewEngine(cfg.RiskFreeRate),
		datasets: cache.New[contracts.Dataset](cfg.CacheTTL, 0),
		stats:    cache.New[Statistics](cfg.CacheTTL, maxCachedQueries),
		ttl:      cfg.CacheTTL,
		staleTTL: staleTTL,

		reloadBackoff: defaultReloadBackoff,

		logger: log,
		now:    time.Now,
	}
}

// WithRemoteCache mirrors statistics into Redis
func (s *Service) WithRemoteCache(c *redis.Cache) *Service {
	s.remote = c
	return s
}

// WithReloadBackoff sets the pause between reload attempts after a failure
func (s *Service) WithReloadBackoff(d time.Duration) *Service {
	s.reloadBackoff = d
	return s
}

// WithClock replaces the time source for both the period windows and the caches
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.datasets.WithClock(now)
	s.stats.WithClock(now)
	return s
}

// Subscribe registers fn to receive statistics after every Refresh
func (s *Service) Subscribe(fn func(*Statistics)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subscribers = append(s.subscribers, fn)
}

// Load returns the dataset, reloading when the cached one has expired.
// A failed reload falls back to the expired dataset when one exists.
func (s *Service) Load(ctx context.Context) (*contracts.Dataset, error) {
	ds, _, err := s.dataset(ctx)
	return ds, err
}

func (s *Service) dataset(ctx context.Context) (*contracts.Dataset, bool, error) {
	key := s.sources.Key()

	if ds, ok := s.datasets.Get(key); ok {
		return ds, false, nil
	}

	// One reload at a time; late arrivals reuse the winner's result
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if ds, ok := s.datasets.Get(key); ok {
		return ds, false, nil
	}

	// Source recently failed: serve stale data without blocking on another fetch
	if s.inBackoff() {
		if stale, _, ok := s.datasets.GetStale(key); ok {
			return stale, true, nil
		}
	}

	ds, err := s.reload(ctx)
	if err == nil {
		return ds, false, nil
	}

	if stale, storedAt, ok := s.datasets.GetStale(key); ok {
		s.logger.WithError(err).WithField("cached_at", storedAt).
			Warn("Reload failed, serving stale dataset")
		return stale, true, nil
	}

	return nil, false, fmt.Errorf("load dataset: %w", err)
}

// Statistics computes (or returns cached) statistics for q. When no dataset
// can be loaded at all it returns DefaultStatistics with Fallback set.
func (s *Service) Statistics(ctx context.Context, q Query) (*Statistics, error) {
	if q.Period == "" {
		q.Period = contracts.PeriodAll
	}
	key := q.Key()

	if st, ok := s.stats.Get(key); ok {
		return st, nil
	}

	if st := s.fromRemote(ctx, key); st != nil {
		s.stats.Set(key, st)
		return st, nil
	}

	ds, stale, err := s.dataset(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("period", q.Period).
			Error("No dataset available, serving default statistics")
		return DefaultStatistics(q.Period, s.now()), nil
	}

	st := s.Compute(ds, q)
	st.Stale = stale

	if !stale {
		s.stats.Set(key, st)
		s.toRemote(ctx, key, st)
	}

	return st, nil
}

// Compute derives the statistics view for q from ds without touching any cache
func (s *Service) Compute(ds *contracts.Dataset, q Query) *Statistics {
	now := s.now()
	start, end := q.Period.Range(now)

	trades := make([]contracts.TradeRecord, 0, len(ds.Trades))
	for _, t := range ds.Trades {
		if q.Period.Contains(t.ExitDate, now) {
			trades = append(trades, t)
		}
	}

	bench := series.NewBenchmark(ds.Benchmark).Slice(windowStart(start, trades), end)
	points, mode := s.builder.Build(trades, bench)

	m := s.engine.Compute(metrics.Input{
		Trades:    trades,
		Series:    points,
		Benchmark: bench,
	})

	st := &Statistics{
		Period:      q.Period,
		StartDate:   start,
		EndDate:     end,
		Metrics:     m,
		Series:      points,
		SeriesMode:  mode,
		SkippedRows: ds.SkippedCount(),
		DataAsOf:    ds.LoadedAt,
		GeneratedAt: now,
	}
	if q.Period == contracts.PeriodAll && len(trades) > 0 {
		st.StartDate = m.StartDate
	}
	if q.IncludeClosedTrades {
		st.Trades = trades
	}
	if q.IncludeBenchmark {
		st.Benchmark = bench.Points()
	}

	return st
}

// windowStart begins the benchmark at the first entry inside the period so
// both curves cover the same span
func windowStart(periodStart time.Time, trades []contracts.TradeRecord) time.Time {
	if len(trades) == 0 {
		return periodStart
	}

	first := contracts.DateOnly(trades[0].EntryDate)
	for _, t := range trades[1:] {
		if entry := contracts.DateOnly(t.EntryDate); entry.Before(first) {
			first = entry
		}
	}

	if first.Before(periodStart) {
		return periodStart
	}
	return first
}

// Refresh reloads the sources, drops cached statistics and publishes the
// default view. On failure the previous dataset stays cached.
func (s *Service) Refresh(ctx context.Context) (*Statistics, error) {
	s.loadMu.Lock()
	ds, err := s.reload(ctx)
	s.loadMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.stats.Clear()
	s.clearRemote(ctx)

	st := s.Compute(ds, DefaultQuery())
	s.stats.Set(DefaultQuery().Key(), st)
	s.toRemote(ctx, DefaultQuery().Key(), st)

	s.logger.WithFields(map[string]interface{}{
		"trades":       st.Metrics.TotalTrades,
		"total_return": st.Metrics.TotalReturn,
		"skipped_rows": st.SkippedRows,
	}).Info("Statistics refreshed")

	s.publish(st)
	return st, nil
}

// reload must be called with loadMu held
func (s *Service) reload(ctx context.Context) (*contracts.Dataset, error) {
	ds, err := s.loader.Load(ctx, s.sources)
	if err != nil {
		s.failedAt = s.now()
		return nil, err
	}
	s.failedAt = time.Time{}
	s.datasets.Set(s.sources.Key(), ds)
	return ds, nil
}

// inBackoff must be called with loadMu held
func (s *Service) inBackoff() bool {
	return !s.failedAt.IsZero() && s.now().Sub(s.failedAt) < s.reloadBackoff
}

// CleanStale evicts cached entries older than the stale window
func (s *Service) CleanStale() int {
	return s.datasets.CleanStale(s.staleTTL) + s.stats.CleanStale(s.staleTTL)
}

// CacheStats reports the in-memory tiers
func (s *Service) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"datasets":   s.datasets.Stats(),
		"statistics": s.stats.Stats(),
	}
}

func (s *Service) publish(st *Statistics) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, fn := range s.subscribers {
		fn(st)
	}
}

func (s *Service) fromRemote(ctx context.Context, key string) *Statistics {
	if s.remote == nil {
		return nil
	}

	var st Statistics
	found, err := s.remote.Get(ctx, key, &st)
	if err != nil {
		s.logger.WithError(err).Warn("Remote cache read failed")
		return nil
	}
	if !found {
		return nil
	}
	return &st
}

func (s *Service) toRemote(ctx context.Context, key string, st *Statistics) {
	if s.remote == nil {
		return
	}
	if err := s.remote.Set(ctx, key, st, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Remote cache write failed")
	}
}

func (s *Service) clearRemote(ctx context.Context) {
	if s.remote == nil {
		return
	}
	n, err := s.remote.Invalidate(ctx, redis.StatisticsPattern)
	if err != nil {
		s.logger.WithError(err).Warn("Remote cache invalidate failed")
		return
	}
	s.logger.WithField("keys", n).Debug("Remote statistics cache cleared")
}
