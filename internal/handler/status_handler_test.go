package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"confessionrelay/internal/config"
	"confessionrelay/internal/domain"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/middleware"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(stats fakeStats, db Pinger, metricsCfg config.MetricsConfig) http.Handler {
	h := NewStatusHandler(stats, db, "ConfesionesTekvoBot", "Tekvoblack", logger.NewNop())
	return NewRouter(h, middleware.NewRateLimiter(rate.Inf, 1), metricsCfg, logger.NewNop())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHomeAndHealth(t *testing.T) {
	r := newTestRouter(fakeStats{}, fakePinger{}, config.MetricsConfig{})

	rec := get(t, r, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "@ConfesionesTekvoBot")

	rec = get(t, r, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHealthReportsStoreOutage(t *testing.T) {
	r := newTestRouter(fakeStats{}, fakePinger{err: errors.New("gone")}, config.MetricsConfig{})

	rec := get(t, r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsEndpoints(t *testing.T) {
	stats := &domain.Stats{Total: 40, Today: 4, Users: 9, PendingPublications: 1}
	r := newTestRouter(fakeStats{stats: stats}, fakePinger{}, config.MetricsConfig{})

	rec := get(t, r, "/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total confesiones: 40")
	assert.Contains(t, rec.Body.String(), "Confesiones hoy: 4")

	rec = get(t, r, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 40, body["total_confessions"])
	assert.EqualValues(t, 9, body["users"])
}

func TestStatsFailure(t *testing.T) {
	r := newTestRouter(fakeStats{err: domain.ErrPersistence}, fakePinger{}, config.MetricsConfig{})
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/api/stats").Code)
}

func TestMetricsBehindBasicAuth(t *testing.T) {
	r := newTestRouter(fakeStats{}, fakePinger{}, config.MetricsConfig{User: "m", Password: "p"})
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/metrics").Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("m", "p")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthServerFollowsStore(t *testing.T) {
	ctx := context.Background()
	pinger := &switchablePinger{}
	hs := NewHealthServer(pinger, logger.NewNop())

	hs.Refresh(ctx)
	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	pinger.err = errors.New("down")
	hs.Refresh(ctx)
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestHealthServerShutsDownWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hs := NewHealthServer(fakePinger{}, logger.NewNop())

	done := make(chan struct{})
	go func() {
		hs.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

type switchablePinger struct{ err error }

func (p *switchablePinger) PingContext(context.Context) error { return p.err }
