package jobs

import (
	"context"
	"fmt"

	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

// Refresher is implemented by *performance.Service
type Refresher interface {
	Refresh(ctx context.Context) (*performance.Statistics, error)
}

// StatisticsRefreshJob reloads the source files so edits show up without a
// restart. Subscribers (the websocket hub) are notified by the service.
type StatisticsRefreshJob struct {
	svc      Refresher
	schedule string
	logger   *logger.Logger
}

// NewStatisticsRefreshJob creates a new refresh job
func NewStatisticsRefreshJob(svc Refresher, schedule string, log *logger.Logger) *StatisticsRefreshJob {
	return &StatisticsRefreshJob{
		svc:      svc,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *StatisticsRefreshJob) Name() string {
	return "statistics_refresh"
}

// Schedule returns the cron schedule
func (j *StatisticsRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *StatisticsRefreshJob) Run(ctx context.Context) error {
	st, err := j.svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("statistics refresh: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"trades":       st.Metrics.TotalTrades,
		"series_mode":  st.SeriesMode,
		"skipped_rows": st.SkippedRows,
	}).Debug("Statistics refresh job done")

	return nil
}
