package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/crestline/perf/internal/cache"
	"github.com/crestline/perf/pkg/database"
	"github.com/crestline/perf/pkg/redis"
)

// CacheReporter is implemented by *performance.Service
type CacheReporter interface {
	CacheStats() map[string]cache.Stats
}

// HealthHandler reports liveness and dependency status
type HealthHandler struct {
	db      *database.DB  // nil when disabled
	redis   *redis.Client // nil or disabled
	cache   CacheReporter
	started time.Time
}

// NewHealthHandler creates a new health handler. db and rc may be nil.
func NewHealthHandler(db *database.DB, rc *redis.Client, cr CacheReporter) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   rc,
		cache:   cr,
		started: time.Now(),
	}
}

// Check returns server health status. Optional dependencies that are down
// degrade the status but never fail the check.
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := map[string]string{
		"database": "disabled",
		"redis":    "disabled",
	}

	if h.db != nil {
		deps["database"] = "ok"
		if hs, err := h.db.HealthCheck(ctx); err != nil || !hs.Healthy {
			deps["database"] = "unavailable"
			status = "degraded"
		}
	}

	if h.redis.Enabled() {
		deps["redis"] = "ok"
		if err := h.redis.Redis().Ping(ctx).Err(); err != nil {
			deps["redis"] = "unavailable"
			status = "degraded"
		}
	}

	body := map[string]interface{}{
		"status":       status,
		"service":      "perf-api",
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"dependencies": deps,
	}
	if h.cache != nil {
		body["cache"] = h.cache.CacheStats()
	}

	respondJSON(w, http.StatusOK, body)
}
