package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"odapstat/internal/infrastructure"
)

// HealthService answers the probe and version endpoints.
type HealthService struct {
	version   string
	buildTime string
	runtime   *infrastructure.RuntimeMetrics
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the probe response body.
type HealthStatus struct {
	Status    string                          `json:"status"`
	Timestamp time.Time                       `json:"timestamp"`
	Version   string                          `json:"version"`
	Runtime   *infrastructure.RuntimeSnapshot `json:"runtime,omitempty"`
}

// NewHealthService creates the health service. runtimeMetrics may be
// nil when no meter is wired.
func NewHealthService(version, buildTime string, runtimeMetrics *infrastructure.RuntimeMetrics, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if version == "" {
		version = infrastructure.ServiceVersion
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		runtime:   runtimeMetrics,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// LivenessCheck reports that the process is running.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports readiness with a runtime snapshot. The
// pipeline has no external dependencies, so a serving process is a
// ready process.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
	if hs.runtime != nil {
		snap := hs.runtime.Snapshot()
		status.Runtime = &snap
	}
	return status
}

// Version returns version and build information.
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}
