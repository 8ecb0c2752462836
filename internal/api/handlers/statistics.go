package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

// StatisticsProvider is implemented by *performance.Service
type StatisticsProvider interface {
	Statistics(ctx context.Context, q performance.Query) (*performance.Statistics, error)
}

// SnapshotLister is implemented by *history.Repository
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, period contracts.Period, limit int) ([]history.Snapshot, error)
}

// StatisticsHandler serves computed performance statistics
type StatisticsHandler struct {
	stats   StatisticsProvider
	history SnapshotLister // nil when the database is disabled
	logger  *logger.Logger
}

// NewStatisticsHandler creates a new statistics handler. hist may be nil.
func NewStatisticsHandler(stats StatisticsProvider, hist SnapshotLister, log *logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		stats:   stats,
		history: hist,
		logger:  log,
	}
}

// GetStatistics returns statistics for one period
// GET /api/statistics?period=ytd|1y|2y|all&includeClosedTrades=bool&includeBenchmark=bool
func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.stats.Statistics(r.Context(), q)
	if err != nil {
		h.logger.WithError(err).WithField("period", q.Period).Error("Failed to compute statistics")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, st)
}

// GetHistory returns persisted metric snapshots, newest first
// GET /api/statistics/history?period=all&limit=30
func (h *StatisticsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "History is not enabled")
		return
	}

	period, err := contracts.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	snapshots, err := h.history.ListSnapshots(r.Context(), period, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, snapshots)
}

// parseQuery reads period and the two include flags. includeBenchmark
// defaults to true, includeClosedTrades to false.
func parseQuery(r *http.Request) (performance.Query, error) {
	values := r.URL.Query()
	q := performance.DefaultQuery()

	period, err := contracts.ParsePeriod(values.Get("period"))
	if err != nil {
		return q, err
	}
	q.Period = period

	if q.IncludeClosedTrades, err = parseFlag(values.Get("includeClosedTrades"), q.IncludeClosedTrades); err != nil {
		return q, err
	}
	if q.IncludeBenchmark, err = parseFlag(values.Get("includeBenchmark"), q.IncludeBenchmark); err != nil {
		return q, err
	}

	return q, nil
}

func parseFlag(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, &flagError{value: raw}
	}
	return v, nil
}

type flagError struct {
	value string
}

func (e *flagError) Error() string {
	return "invalid boolean " + strconv.Quote(e.value)
}
