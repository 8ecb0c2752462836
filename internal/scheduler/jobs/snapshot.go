package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

// ErrFallbackStatistics means the source was unavailable; nothing is persisted
var ErrFallbackStatistics = errors.New("statistics unavailable, fallback values not persisted")

// StatisticsProvider is implemented by *performance.Service
type StatisticsProvider interface {
	Statistics(ctx context.Context, q performance.Query) (*performance.Statistics, error)
}

// SnapshotSaver is implemented by *history.Repository
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, s *history.Snapshot) error
}

// MetricsSnapshotJob persists the metrics of every period once a day
type MetricsSnapshotJob struct {
	stats    StatisticsProvider
	repo     SnapshotSaver
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewMetricsSnapshotJob creates a new snapshot job
func NewMetricsSnapshotJob(stats StatisticsProvider, repo SnapshotSaver, schedule string, log *logger.Logger) *MetricsSnapshotJob {
	return &MetricsSnapshotJob{
		stats:    stats,
		repo:     repo,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *MetricsSnapshotJob) Name() string {
	return "metrics_snapshot"
}

// Schedule returns the cron schedule
func (j *MetricsSnapshotJob) Schedule() string {
	return j.schedule
}

// Run snapshots every period
func (j *MetricsSnapshotJob) Run(ctx context.Context) error {
	date := j.now()

	for _, period := range contracts.AllPeriods() {
		if _, err := j.SnapshotPeriod(ctx, period, date); err != nil {
			return err
		}
	}

	j.logger.WithField("date", date.Format("2006-01-02")).Info("Metrics snapshot saved")
	return nil
}

// SnapshotPeriod computes and saves one period's snapshot for date
func (j *MetricsSnapshotJob) SnapshotPeriod(ctx context.Context, period contracts.Period, date time.Time) (*history.Snapshot, error) {
	q := performance.DefaultQuery()
	q.Period = period

	st, err := j.stats.Statistics(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("statistics for %s: %w", period, err)
	}
	if st.Fallback || st.Stale {
		return nil, fmt.Errorf("%s: %w", period, ErrFallbackStatistics)
	}

	snap := history.NewSnapshot(date, period, st.Metrics)
	if err := j.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("save %s snapshot: %w", period, err)
	}

	return snap, nil
}
