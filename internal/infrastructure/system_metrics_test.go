package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := InitializeOTel(testOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	start := time.Now().Add(-2 * time.Second)
	metrics, err := NewRuntimeMetrics(providers.Meter, start)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	defer metrics.Unregister()

	snap := metrics.Snapshot()
	assert.Greater(t, snap.Goroutines, 0)
	assert.Greater(t, snap.HeapAllocMB, 0.0)
	assert.Greater(t, snap.SystemMB, 0.0)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 2.0)
}

func TestRuntimeMetricsUnregister(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	providers, err := InitializeOTel(testOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewRuntimeMetrics(providers.Meter, time.Now())
	require.NoError(t, err)

	assert.NoError(t, metrics.Unregister())
	// Unregistering twice must stay safe.
	assert.NoError(t, metrics.Unregister())
}
