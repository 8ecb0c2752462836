package jobs

import (
	"context"

	"github.com/crestline/perf/pkg/logger"
)

// Cleaner evicts expired entries and reports how many went
type Cleaner interface {
	CleanStale() int
}

// CleanerFunc adapts a function to Cleaner
type CleanerFunc func() int

// CleanStale calls f
func (f CleanerFunc) CleanStale() int {
	return f()
}

// CacheCleanupJob evicts stale cache entries and idle rate limit buckets
type CacheCleanupJob struct {
	cleaners map[string]Cleaner
	schedule string
	logger   *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(schedule string, cleaners map[string]Cleaner, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cleaners: cleaners,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule
func (j *CacheCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled cache cleanup")

	removed := make(map[string]interface{}, len(j.cleaners))
	total := 0
	for name, c := range j.cleaners {
		n := c.CleanStale()
		removed[name] = n
		total += n
	}

	if total > 0 {
		j.logger.WithFields(removed).Info("Cache cleanup completed")
	}

	return nil
}
