package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestline/perf/internal/cache"
	"github.com/crestline/perf/internal/contact"
	"github.com/crestline/perf/internal/contracts"
	"github.com/crestline/perf/internal/history"
	"github.com/crestline/perf/internal/performance"
	"github.com/crestline/perf/pkg/logger"
)

type stubStats struct {
	got performance.Query
	err error
}

func (s *stubStats) Statistics(ctx context.Context, q performance.Query) (*performance.Statistics, error) {
	s.got = q
	if s.err != nil {
		return nil, s.err
	}
	return &performance.Statistics{
		Period:  q.Period,
		Metrics: contracts.PortfolioMetrics{TotalTrades: 5, WinRate: 60},
	}, nil
}

func (s *stubStats) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{"statistics": {Entries: 1, Fresh: 1}}
}

type stubHistory struct {
	limit int
	err   error
}

func (h *stubHistory) ListSnapshots(ctx context.Context, period contracts.Period, limit int) ([]history.Snapshot, error) {
	h.limit = limit
	if h.err != nil {
		return nil, h.err
	}
	return []history.Snapshot{{ID: 1, Period: period, TradeCount: 5}}, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetStatistics(t *testing.T) {
	stats := &stubStats{}
	h := NewStatisticsHandler(stats, nil, logger.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/statistics?period=ytd&includeClosedTrades=true&includeBenchmark=false", nil)
	rec := httptest.NewRecorder()
	h.GetStatistics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, performance.Query{Period: contracts.PeriodYTD, IncludeClosedTrades: true}, stats.got)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ytd", data["period"])
}

func TestGetStatistics_Defaults(t *testing.T) {
	stats := &stubStats{}
	h := NewStatisticsHandler(stats, nil, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetStatistics(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, performance.DefaultQuery(), stats.got)
}

func TestGetStatistics_BadRequest(t *testing.T) {
	h := NewStatisticsHandler(&stubStats{}, nil, logger.Nop())

	for _, target := range []string{
		"/api/statistics?period=10y",
		"/api/statistics?includeBenchmark=maybe",
	} {
		rec := httptest.NewRecorder()
		h.GetStatistics(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, false, decode(t, rec)["success"], target)
	}
}

func TestGetStatistics_InternalErrorIsGeneric(t *testing.T) {
	h := NewStatisticsHandler(&stubStats{err: errors.New("pq: secret detail")}, nil, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetStatistics(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestGetHistory(t *testing.T) {
	hist := &stubHistory{}
	h := NewStatisticsHandler(&stubStats{}, hist, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/api/statistics/history?limit=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, hist.limit)
	assert.Len(t, decode(t, rec)["data"], 1)
}

func TestGetHistory_Disabled(t *testing.T) {
	h := NewStatisticsHandler(&stubStats{}, nil, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/api/statistics/history", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetHistory_BadLimit(t *testing.T) {
	h := NewStatisticsHandler(&stubStats{}, &stubHistory{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest(http.MethodGet, "/api/statistics/history?limit=-1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newContactHandler(limit int) *ContactHandler {
	svc := contact.NewService(contact.NewLimiter(limit, time.Hour, nil, logger.Nop()), logger.Nop())
	return NewContactHandler(svc, nil, logger.Nop())
}

func postContact(h *ContactHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.4:53122"
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

const validContact = `{"name":"Jordan Avery","email":"jordan@example.com","message":"Please send pricing details."}`

func TestContactSubmit(t *testing.T) {
	rec := postContact(newContactHandler(5), validContact)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestContactSubmit_ValidationErrors(t *testing.T) {
	rec := postContact(newContactHandler(5), `{"name":"J","email":"nope","message":"short"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])

	errs := body["errors"].([]interface{})
	require.Len(t, errs, 3)
	assert.Equal(t, "name", errs[0].(map[string]interface{})["field"])
}

func TestContactSubmit_BadJSON(t *testing.T) {
	rec := postContact(newContactHandler(5), `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactSubmit_RateLimited(t *testing.T) {
	h := newContactHandler(1)

	require.Equal(t, http.StatusOK, postContact(h, validContact).Code)
	assert.Equal(t, http.StatusTooManyRequests, postContact(h, validContact).Code)
}

func TestContactSubmit_ForwardedHeadersFromUntrustedPeerIgnored(t *testing.T) {
	h := newContactHandler(1)

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(validContact))
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", "10.9.9."+strconv.Itoa(i))
		req.Header.Set("X-Real-IP", "10.8.8."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.Submit(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 429, 429, 429, 429}, codes)
}

func TestClientKey(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("fd00::/8")}
	h := NewContactHandler(nil, trusted, logger.Nop())

	tests := []struct {
		name    string
		remote  string
		forward string
		realIP  string
		want    string
	}{
		{name: "direct peer", remote: "198.51.100.4:1234", want: "198.51.100.4"},
		{name: "untrusted peer spoofing XFF", remote: "198.51.100.4:1234", forward: "203.0.113.9", want: "198.51.100.4"},
		{name: "untrusted peer spoofing X-Real-IP", remote: "198.51.100.4:1234", realIP: "203.0.113.9", want: "198.51.100.4"},
		{name: "trusted proxy, single hop", remote: "10.0.0.2:1234", forward: "203.0.113.9", want: "203.0.113.9"},
		{name: "client-supplied prefix is skipped", remote: "10.0.0.2:1234", forward: "1.2.3.4, 203.0.113.9", want: "203.0.113.9"},
		{name: "chained trusted proxies", remote: "10.0.0.2:1234", forward: "1.2.3.4, 203.0.113.9, 10.1.1.1", want: "203.0.113.9"},
		{name: "garbage hop stops the walk", remote: "10.0.0.2:1234", forward: "203.0.113.9, junk, 10.1.1.1", want: "10.1.1.1"},
		{name: "trusted proxy, X-Real-IP", remote: "10.0.0.2:1234", realIP: "203.0.113.5", want: "203.0.113.5"},
		{name: "trusted proxy, no headers", remote: "10.0.0.2:1234", want: "10.0.0.2"},
		{name: "ipv6 trusted proxy", remote: "[fd00::1]:443", forward: "2001:db8::7", want: "2001:db8::7"},
		{name: "ipv4-mapped peer", remote: "[::ffff:198.51.100.4]:1234", want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forward != "" {
				req.Header.Set("X-Forwarded-For", tt.forward)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, h.clientKey(req))
		})
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil, nil, &stubStats{})

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	assert.Equal(t, "disabled", deps["database"])
	assert.Equal(t, "disabled", deps["redis"])
	assert.NotNil(t, body["cache"])
}
