package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/solarcapture/internal/api/handlers"
	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/store/memory"
	"github.com/wonny/solarcapture/internal/zones"
	"github.com/wonny/solarcapture/pkg/config"
	"github.com/wonny/solarcapture/pkg/database"
	"github.com/wonny/solarcapture/pkg/logger"
	"github.com/wonny/solarcapture/pkg/redis"
)

type fakeRecomputer struct {
	windowCalls int
	rollupCalls int
	err         error
}

func (f *fakeRecomputer) RunTrailing(ctx context.Context, now time.Time) (*contracts.RunSummary, error) {
	f.windowCalls++
	return &contracts.RunSummary{RunID: "run-1", Kind: "window", Succeeded: 2}, f.err
}

func (f *fakeRecomputer) RunFullRollup(ctx context.Context) (*contracts.RunSummary, error) {
	f.rollupCalls++
	return &contracts.RunSummary{RunID: "run-2", Kind: "rollup", Succeeded: 1}, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: f.err == nil}, f.err
}

type fixture struct {
	router http.Handler
	store  *memory.Store
	cache  *redis.Cache
	rec    *fakeRecomputer
}

func newFixture(t *testing.T, health HealthChecker) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redis.NewFromRedis(rdb, "test").SummaryCache()

	store := memory.New()
	rec := &fakeRecomputer{}
	log := logger.Nop()

	summary := handlers.NewSummaryHandler(store, zones.Default(), cache, time.Minute, log)
	admin := handlers.NewAdminHandler(rec, "s3cret", log)

	return &fixture{
		router: NewRouter(summary, admin, health, log),
		store:  store,
		cache:  cache,
		rec:    rec,
	}
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fakeHealth{})
	rec, body := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	f = newFixture(t, fakeHealth{err: errors.New("down")})
	rec, body = f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestSummaryTotal(t *testing.T) {
	f := newFixture(t, nil)

	rec, body := f.do(t, http.MethodGet, "/api/summary/total")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["neg_hours"])

	require.NoError(t, f.store.ReplaceTotal(context.Background(), contracts.TotalMetric{Metrics: contracts.Metrics{NegHours: 12.5}}))

	// still served from cache
	_, body = f.do(t, http.MethodGet, "/api/summary/total")
	assert.Equal(t, 0.0, body["neg_hours"])

	CacheInvalidator(f.cache, logger.Nop())(context.Background(), &contracts.RunSummary{RunID: "x"})

	_, body = f.do(t, http.MethodGet, "/api/summary/total")
	assert.Equal(t, 12.5, body["neg_hours"])
}

func TestSummaryYearlyAndMonthly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.store.ReplaceYearly(ctx, []contracts.YearlyMetric{{ZoneID: "FR", Metrics: contracts.Metrics{NegHours: 3}}}))
	require.NoError(t, f.store.ReplaceMonthly(ctx, nil, []contracts.MonthlyMetric{
		{ZoneID: "FR", Month: 1},
		{ZoneID: "DE-LU", Month: 1},
	}))

	rec, body := f.do(t, http.MethodGet, "/api/summary/yearly")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	row := data[0].(map[string]interface{})
	assert.Equal(t, "FR", row["country"])
	assert.Equal(t, "France", row["country_name"])
	assert.Equal(t, 3.0, row["neg_hours"])

	_, body = f.do(t, http.MethodGet, "/api/summary/monthly?country=10Y1001A1001A82H")
	data = body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Germany-Luxembourg", data[0].(map[string]interface{})["country_name"])
}

func TestSummaryDaily(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutDaily(
		contracts.DailyMetric{ZoneID: "FR", Year: 2024, Month: 4, Day: 1},
		contracts.DailyMetric{ZoneID: "FR", Year: 2024, Month: 5, Day: 1},
	)

	rec, body := f.do(t, http.MethodGet, "/api/summary/daily?country=FR&month=4")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, 4.0, data[0].(map[string]interface{})["month"])

	rec, _ = f.do(t, http.MethodGet, "/api/summary/daily?month=13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRecompute(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodPost, "/admin/recompute?secret=wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.rec.windowCalls)

	rec, body := f.do(t, http.MethodPost, "/admin/recompute?secret=s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 1, f.rec.windowCalls)

	rec, _ = f.do(t, http.MethodPost, "/admin/recompute?secret=s3cret&mode=rollup")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.rec.rollupCalls)

	rec, _ = f.do(t, http.MethodPost, "/admin/recompute?secret=s3cret&mode=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.rec.err = errors.New("rollup: disk full")
	rec, body = f.do(t, http.MethodPost, "/admin/recompute?secret=s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])

	rec, _ = f.do(t, http.MethodGet, "/admin/recompute?secret=s3cret")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	admin := handlers.NewAdminHandler(&fakeRecomputer{}, "", logger.Nop())
	summary := handlers.NewSummaryHandler(memory.New(), zones.Default(), nil, time.Minute, logger.Nop())
	router := NewRouter(summary, admin, nil, logger.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/recompute?secret=", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := &config.Config{Port: "0", Env: "development"}
	srv := New(cfg, logger.Nop(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
