package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odapstat/internal/services"
	"odapstat/internal/shared/testutil"
)

func newHealthRouter(t *testing.T) chi.Router {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	service := services.NewHealthService("v1.2.3-test", "2026-08-01T00:00:00Z", nil, logger)
	handler := NewHealthHandler(service, logger)

	r := chi.NewRouter()
	r.Get("/api/health", handler.HealthCheck)
	r.Get("/api/health/ready", handler.ReadinessCheck)
	r.Get("/api/health/live", handler.LivenessCheck)
	r.Get("/api/version", handler.Version)
	return r
}

func TestHealthHandler_Checks(t *testing.T) {
	router := newHealthRouter(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus string
	}{
		{name: "health", path: "/api/health", expectedStatus: "ok"},
		{name: "readiness", path: "/api/health/ready", expectedStatus: "ready"},
		{name: "liveness", path: "/api/health/live", expectedStatus: "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var status services.HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.expectedStatus, status.Status)
			assert.Equal(t, "v1.2.3-test", status.Version)
			assert.False(t, status.Timestamp.IsZero())
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	router := newHealthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "v1.2.3-test", info["version"])
	assert.Equal(t, "2026-08-01T00:00:00Z", info["build_time"])
	assert.Contains(t, info, "go_version")
	assert.Contains(t, info, "uptime")
}
