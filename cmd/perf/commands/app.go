package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/crestline/perf/internal/contact"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/internal/ingest"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/internal/scheduler"
	"github.com/crestline/perf/internal/scheduler/jobs"
	"github.com/crestline/perf/pkg/config"
	"github.com/crestline/perf/pkg/database"
	"github.com/crestline/perf/pkg/httputil"
	"github.com/crestline/perf/pkg/logger"
	"github.com/crestline/perf/pkg/redis"
)

const redisPrefix = "perf"

// app holds the wired components shared by the commands
type app struct {
	cfg *config.Config
	log *logger.Logger

	redis   *redis.Client       // disabled client when REDIS_ENABLED=false
	db      *database.DB        // nil when the database is disabled or down
	history *history.Repository // nil together with db

	http    *httputil.Client // shared by every remote source fetch
	loader  *ingest.Loader
	stats   *performance.Service
	contact *contact.Service
}

// loadConfig reads --config (if given), then the environment
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// newApp wires loader, statistics and contact services. Redis and the
// database are optional: failures are logged and the feature is switched off.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, withDB bool) *app {
	a := &app{cfg: cfg, log: log}

	rc, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-process cache only")
		rc = redis.NewFromRedis(nil)
	}
	a.redis = rc

	a.http = httputil.New(cfg, log)
	a.loader = ingest.NewLoader(ingest.NewFetcher(a.http, log), ingest.NewParser(log), log)

	a.stats = performance.NewService(a.loader, cfg.Data, log)
	if rc.Enabled() {
		a.stats.WithRemoteCache(redis.NewCache(rc, redisPrefix))
	}

	var shared *redis.RateLimiter
	if rc.Enabled() {
		shared = redis.NewRateLimiter(rc, redisPrefix)
	}
	limiter := contact.NewLimiter(cfg.Contact.RateLimit, cfg.Contact.RateWindow, shared, log)
	a.contact = contact.NewService(limiter, log)

	if withDB {
		a.openDatabase(ctx)
	}

	return a
}

func (a *app) openDatabase(ctx context.Context) {
	db, err := database.New(ctx, a.cfg)
	if errors.Is(err, database.ErrDisabled) {
		a.log.Info("DATABASE_URL not set, snapshot history disabled")
		return
	}
	if err != nil {
		a.log.WithError(err).Warn("Database unavailable, snapshot history disabled")
		return
	}

	if err := db.Migrate(ctx); err != nil {
		a.log.WithError(err).Warn("Schema migration failed, snapshot history disabled")
		db.Close()
		return
	}

	a.db = db
	a.history = history.NewRepository(db.Pool)
	a.log.Info("Connected to database")
}

// newScheduler registers the background jobs. The snapshot job is only
// added when the database is available.
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log, scheduler.DefaultOptions())
	sc := a.cfg.Scheduler

	list := []scheduler.Job{
		jobs.NewStatisticsRefreshJob(a.stats, sc.RefreshSchedule, a.log),
		jobs.NewCacheCleanupJob(sc.CleanupSchedule, map[string]jobs.Cleaner{
			"statistics": a.stats,
			"contact":    jobs.CleanerFunc(a.contact.Cleanup),
		}, a.log),
	}
	if a.history != nil {
		list = append(list, jobs.NewMetricsSnapshotJob(a.stats, a.history, sc.SnapshotSchedule, a.log))
	}

	for _, job := range list {
		if err := s.AddJob(job); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Close releases the database pool and the Redis connection
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
