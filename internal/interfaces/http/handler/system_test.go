package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

func setupSystemHandler(db Pinger, metrics http.Handler) *gin.Engine {
	h := NewSystemHandler("test-my-sklad", db, metrics, nil)
	r := newTestEngine()
	r.GET("/health", h.Health)
	r.GET("/info", h.GetSystemInfo)
	r.GET("/metrics", h.Metrics)
	return r
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	r := setupSystemHandler(nil, nil)

	w, resp := performRequest(t, r, http.MethodGet, "/info", nil, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	decodeData(t, resp, &info)
	assert.Equal(t, "test-my-sklad", info.Name)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		want       HealthResponse
	}{
		{
			name:       "no database",
			wantStatus: http.StatusOK,
			want:       HealthResponse{Status: "ok", Database: "skipped"},
		},
		{
			name:       "database up",
			db:         pingerFunc(func(context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			want:       HealthResponse{Status: "ok", Database: "ok"},
		},
		{
			name:       "database down",
			db:         pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			wantStatus: http.StatusServiceUnavailable,
			want:       HealthResponse{Status: "degraded", Database: "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupSystemHandler(tt.db, nil)

			w, resp := performRequest(t, r, http.MethodGet, "/health", nil, 0)

			assert.Equal(t, tt.wantStatus, w.Code)
			var got HealthResponse
			decodeData(t, resp, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSystemHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	r := setupSystemHandler(nil, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	w := performRaw(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_total 1")

	r = setupSystemHandler(nil, nil)
	w = performRaw(t, r, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func performRaw(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)
	return w
}
