package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics exports Go runtime gauges through the meter. Values
// are observed lazily on each Prometheus scrape instead of on a
// polling loop.
type RuntimeMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// RuntimeSnapshot is a point-in-time view of the process, used by the
// readiness payload.
type RuntimeSnapshot struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SystemMB      float64 `json:"system_mb"`
	GCCycles      uint32  `json:"gc_cycles"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewRuntimeMetrics registers the runtime instruments on meter.
func NewRuntimeMetrics(meter metric.Meter, startTime time.Time) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Memory allocated by the Go runtime in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}

	memSystem, err := meter.Int64ObservableGauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create system memory gauge: %w", err)
	}

	gcTotal, err := meter.Int64ObservableCounter(
		"system_gc_count_total",
		metric.WithDescription("Total number of completed garbage collections"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	cpuCount, err := meter.Int64ObservableGauge(
		"system_cpu_count",
		metric.WithDescription("Number of logical CPUs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cpu gauge: %w", err)
	}

	m := &RuntimeMetrics{startTime: startTime}

	m.registration, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)

			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heapAlloc, int64(ms.HeapAlloc))
			o.ObserveInt64(memSystem, int64(ms.Sys))
			o.ObserveInt64(gcTotal, int64(ms.NumGC))
			o.ObserveFloat64(uptime, time.Since(m.startTime).Seconds())
			o.ObserveInt64(cpuCount, int64(runtime.NumCPU()))
			return nil
		},
		goroutines, heapAlloc, memSystem, gcTotal, uptime, cpuCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}

	return m, nil
}

// Snapshot reads the current runtime stats.
func (m *RuntimeMetrics) Snapshot() RuntimeSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return RuntimeSnapshot{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(ms.HeapAlloc) / (1 << 20),
		SystemMB:      float64(ms.Sys) / (1 << 20),
		GCCycles:      ms.NumGC,
		UptimeSeconds: time.Since(m.startTime).Seconds(),
	}
}

// Unregister detaches the observation callback from the meter.
func (m *RuntimeMetrics) Unregister() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
