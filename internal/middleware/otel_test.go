package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odapstat/internal/infrastructure"
)

func newTestProviders(t *testing.T) *infrastructure.OTelProviders {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "odapstat-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableTracing:  true,
		EnableMetrics:  true,
		SampleRatio:    1.0,
	}, logger)
	require.NoError(t, err)
	return providers
}

func TestNewOTelMiddleware(t *testing.T) {
	mw, err := NewOTelMiddleware(newTestProviders(t))
	require.NoError(t, err)
	require.NotNil(t, mw)
	assert.NotNil(t, mw.Metrics())
}

func TestNewOTelMiddlewareWithDisabledProviders(t *testing.T) {
	// Nil tracer and meter fall back to the global no-op providers.
	providers := &infrastructure.OTelProviders{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
	}

	mw, err := NewOTelMiddleware(providers)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTelMiddlewareHandler(t *testing.T) {
	mw, err := NewOTelMiddleware(newTestProviders(t))
	require.NoError(t, err)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	})

	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, httptest.NewRequest("POST", "/api/reports", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", rec.Body.String())
	assert.Len(t, traceID, 32, "handler sees the span's trace id")
}

func TestOTelMiddlewareRecordsErrorStatus(t *testing.T) {
	mw, err := NewOTelMiddleware(newTestProviders(t))
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	n, err := rw.Write([]byte("missing"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, int64(7), rw.bytesWritten)
}

func TestGetRoutePattern(t *testing.T) {
	t.Run("without chi context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/reports/42", nil)
		assert.Equal(t, "/api/reports/42", getRoutePattern(req))
	})

	t.Run("with chi route context", func(t *testing.T) {
		var pattern string
		r := chi.NewRouter()
		r.Get("/api/reports/{id}", func(w http.ResponseWriter, req *http.Request) {
			pattern = getRoutePattern(req)
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports/42", nil))
		assert.Equal(t, "/api/reports/{id}", pattern)
	})
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "X-Forwarded-For wins",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.2"},
			want:    "10.0.0.1",
		},
		{
			name:    "X-Real-IP second",
			headers: map[string]string{"X-Real-IP": "10.0.0.2"},
			want:    "10.0.0.2",
		},
		{
			name:    "falls back to remote addr",
			headers: nil,
			want:    "192.0.2.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(req))
		})
	}
}
