package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) (int, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Code, rr.Body.String()
}

func TestHandler_NilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	m.ObserveOperation("get_clusters", time.Millisecond, nil)
	m.IncRateLimited()

	code, body := scrape(t, m)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "metrics unavailable")
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/map/clusters", http.StatusOK, 12*time.Millisecond)
	m.ObserveOperation("get_clusters", 8*time.Millisecond, nil)
	m.ObserveOperation("get_view_statistics", 30*time.Millisecond, errors.New("boom"))
	m.IncRateLimited()
	m.IncRateLimited()

	code, body := scrape(t, m)
	require.Equal(t, http.StatusOK, code, body)

	assert.Contains(t, body, `compmap_http_requests_total{method="GET",path="/api/v1/map/clusters",status="200"} 1`)
	assert.Contains(t, body, `compmap_mapsearch_operations_total{operation="get_clusters",outcome="ok"} 1`)
	assert.Contains(t, body, `compmap_mapsearch_operations_total{operation="get_view_statistics",outcome="error"} 1`)
	assert.Contains(t, body, `compmap_mapsearch_operation_duration_seconds_count{operation="get_clusters"} 1`)
	assert.Contains(t, body, "compmap_http_rate_limited_total 2")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncRateLimited()

	_, body := scrape(t, b)
	assert.Contains(t, body, "compmap_http_rate_limited_total 0")
}
