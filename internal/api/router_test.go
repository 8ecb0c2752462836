package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/perf/internal/api/handlers"
	"github.com/crestline/perf/internal/contact"
	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

type stubStats struct{}

func (stubStats) Statistics(ctx context.Context, q performance.Query) (*performance.Statistics, error) {
	return &performance.Statistics{Period: q.Period, Metrics: contracts.PortfolioMetrics{TotalTrades: 2}}, nil
}

func newTestRouter() http.Handler {
	log := logger.Nop()
	contactSvc := contact.NewService(contact.NewLimiter(5, time.Minute, nil, log), log)

	return NewRouter(Handlers{
		Health:     handlers.NewHealthHandler(nil, nil, nil),
		Statistics: handlers.NewStatisticsHandler(stubStats{}, nil, log),
		Contact:    handlers.NewContactHandler(contactSvc, nil, log),
		Stream: func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		},
	}, log)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		method string
		target string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/statistics?period=1y", "", http.StatusOK},
		{http.MethodGet, "/api/statistics?period=bogus", "", http.StatusBadRequest},
		{http.MethodGet, "/api/statistics/history", "", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/contact", `{"name":"Jordan","email":"j@example.com","message":"Hello there, team!"}`, http.StatusOK},
		{http.MethodPost, "/api/statistics", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/statistics", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestRouter_RequestID(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "edge-1234")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "edge-1234", rec.Header().Get(RequestIDHeader))
}

func TestRequestID_EmptyContext(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
}
