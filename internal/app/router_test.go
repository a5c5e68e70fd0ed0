package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	dashboardhttp "github.com/ttl-analytics/insights-dashboard/internal/dashboard/http"
	"github.com/ttl-analytics/insights-dashboard/internal/observability"
	"github.com/ttl-analytics/insights-dashboard/internal/session"
	"github.com/ttl-analytics/insights-dashboard/internal/view"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

type staticLoader struct{}

func (staticLoader) Load(_ context.Context, id string) dashboard.DisplayState {
	return dashboard.ShowingInsights(id, nil, []dashboard.InsightItem{{SequenceNumber: 1, Text: "Pipeline healthy", SourceView: id}})
}

func newTestRouter(t *testing.T, tweaks ...func(*Config)) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &Config{AppEnv: "development", AppRequestTimeout: 5 * time.Second}
	for _, tweak := range tweaks {
		tweak(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := views.LoadFile("", "http://backend.test")
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	hub := dashboard.NewHub(staticLoader{}, dashboard.NewMetrics(metrics.Registerer()), time.Hour)
	handler := dashboardhttp.NewHandler(logger, registry, hub, templates, nil, dashboardhttp.Options{})

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   session.NewManager(client, "", "router-secret", time.Hour, false),
		DashboardHandler: handler,
		Metrics:          metrics,
	}), mr
}

func TestRouterHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies())
}

func TestRouterPageSetsSessionAndSecurityHeaders(t *testing.T) {
	router, mr := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insights?view=kpi", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	id, _, _ := strings.Cut(cookies[0].Value, ".")
	stored, err := mr.Get("insights:session:" + id)
	require.NoError(t, err)
	assert.Contains(t, stored, `"last_view":"kpi"`)

	// the remembered view is used when the query omits one
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `"view":"kpi"`)
}

func TestRouterServesStaticAssets(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/insights.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/css"))

	listing := httptest.NewRecorder()
	router.ServeHTTP(listing, httptest.NewRequest(http.MethodGet, "/static/css/", nil))
	assert.Equal(t, http.StatusNotFound, listing.Code)
}

func TestRouterMetricsRecordRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/views/ai-insights", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `insights_http_requests_total{code="200",route="/api/views/{id}"} 1`)
}

func TestRouterReadyWithoutBackendPinger(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), `"service":"insights-dashboard"`)

	buf.Reset()
	newLogger(&Config{AppEnv: "production"}, &buf).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestRouterGlobalRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, func(c *Config) { c.RateLimitPerMin = 2 })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health checks sit outside the limited group
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterSessionStoreDown(t *testing.T) {
	router, mr := newTestRouter(t)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)

	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(cookies[0])
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestRouterCookielessTrafficStaysBounded(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := views.LoadFile("", "http://backend.test")
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	hub := dashboard.NewHub(staticLoader{}, nil, 15*time.Minute)
	hub.SetLimit(25)
	router := NewRouter(RouterParams{
		Logger:           logger,
		Config:           &Config{AppEnv: "development", AppRequestTimeout: 5 * time.Second},
		SessionManager:   session.NewManager(client, "", "router-secret", 720*time.Hour, false).WithFirstVisitTTL(15 * time.Minute),
		DashboardHandler: dashboardhttp.NewHandler(logger, registry, hub, templates, nil, dashboardhttp.Options{}),
	})

	for i := 0; i < 100; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/insights", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, 25, hub.Len())
	keys := mr.Keys()
	require.Len(t, keys, 100)
	for _, key := range keys {
		assert.LessOrEqual(t, mr.TTL(key), 15*time.Minute)
	}
	mr.FastForward(16 * time.Minute)
	assert.Empty(t, mr.Keys())
}
