// Package metrics provides Prometheus-based metrics collection for nexasec.
// It tracks probe sweeps, discovery cycles, device inventory state, and
// device store activity for operational monitoring.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all nexasec metrics
	namespace = "nexasec"

	// Subsystems
	subsystemProbe     = "probe"
	subsystemDiscovery = "discovery"
	subsystemInventory = "inventory"
	subsystemStore     = "store"
	subsystemSystem    = "system"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Probe metrics
	probesTotal    *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	probeErrors    *prometheus.CounterVec
	hostsResponded *prometheus.CounterVec

	// Discovery metrics
	cyclesTotal     *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	discoveryErrors *prometheus.CounterVec
	devicesFound    *prometheus.CounterVec
	activeCycles    prometheus.Gauge

	// Inventory metrics
	devicesOnline  prometheus.Gauge
	devicesOffline prometheus.Gauge
	devicesEvicted *prometheus.CounterVec

	// Store metrics
	storeQueries       *prometheus.CounterVec
	storeQueryDuration *prometheus.HistogramVec
	storeConnections   prometheus.Gauge
	storeErrors        *prometheus.CounterVec

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	startTime  time.Time
	lastUpdate time.Time
	mu         sync.RWMutex
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initProbeMetrics()
	pm.initDiscoveryMetrics()
	pm.initInventoryMetrics()
	pm.initStoreMetrics()
	pm.initSystemMetrics()

	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initProbeMetrics initializes probe-related metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "sweeps_total",
			Help:      "Total number of probe sweeps performed by strategy and status",
		},
		[]string{"strategy", "status"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of probe sweeps in seconds",
			Buckets:   []float64{0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
		},
		[]string{"strategy"},
	)

	pm.probeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "errors_total",
			Help:      "Total number of probe errors by strategy and error type",
		},
		[]string{"strategy", "error_type"},
	)

	pm.hostsResponded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "hosts_responded_total",
			Help:      "Total number of hosts that answered a probe sweep",
		},
		[]string{"strategy", "network"},
	)
}

// initDiscoveryMetrics initializes discovery-cycle metrics
func (pm *PrometheusMetrics) initDiscoveryMetrics() {
	pm.cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "cycles_total",
			Help:      "Total number of discovery cycles by kind and status",
		},
		[]string{"kind", "status"},
	)

	pm.cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of discovery cycles in seconds",
			Buckets:   []float64{1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 1800.0},
		},
		[]string{"kind"},
	)

	pm.discoveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "errors_total",
			Help:      "Total number of discovery errors by kind and error type",
		},
		[]string{"kind", "error_type"},
	)

	pm.devicesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "devices_total",
			Help:      "Total number of devices observed per cycle kind and network",
		},
		[]string{"kind", "network"},
	)

	pm.activeCycles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemDiscovery,
			Name:      "active",
			Help:      "Number of currently running discovery cycles",
		},
	)
}

// initInventoryMetrics initializes inventory-related metrics
func (pm *PrometheusMetrics) initInventoryMetrics() {
	pm.devicesOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemInventory,
			Name:      "devices_online",
			Help:      "Number of devices currently marked online",
		},
	)

	pm.devicesOffline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemInventory,
			Name:      "devices_offline",
			Help:      "Number of devices currently marked offline",
		},
	)

	pm.devicesEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemInventory,
			Name:      "devices_evicted_total",
			Help:      "Total number of stale devices removed from the inventory",
		},
		[]string{"reason"},
	)
}

// initStoreMetrics initializes device store metrics
func (pm *PrometheusMetrics) initStoreMetrics() {
	pm.storeQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "queries_total",
			Help:      "Total number of device store queries by operation and status",
		},
		[]string{"operation", "status"},
	)

	pm.storeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "query_duration_seconds",
			Help:      "Duration of device store queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"operation"},
	)

	pm.storeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "connections_active",
			Help:      "Number of active device store connections",
		},
	)

	pm.storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "errors_total",
			Help:      "Total number of device store errors by operation and error type",
		},
		[]string{"operation", "error_type"},
	)
}

// initSystemMetrics initializes system-related metrics
func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(pm.probesTotal)
	pm.registry.MustRegister(pm.probeDuration)
	pm.registry.MustRegister(pm.probeErrors)
	pm.registry.MustRegister(pm.hostsResponded)

	pm.registry.MustRegister(pm.cyclesTotal)
	pm.registry.MustRegister(pm.cycleDuration)
	pm.registry.MustRegister(pm.discoveryErrors)
	pm.registry.MustRegister(pm.devicesFound)
	pm.registry.MustRegister(pm.activeCycles)

	pm.registry.MustRegister(pm.devicesOnline)
	pm.registry.MustRegister(pm.devicesOffline)
	pm.registry.MustRegister(pm.devicesEvicted)

	pm.registry.MustRegister(pm.storeQueries)
	pm.registry.MustRegister(pm.storeQueryDuration)
	pm.registry.MustRegister(pm.storeConnections)
	pm.registry.MustRegister(pm.storeErrors)

	pm.registry.MustRegister(pm.memoryUsage)
	pm.registry.MustRegister(pm.goroutines)
	pm.registry.MustRegister(pm.uptime)
}

// GetRegistry returns the Prometheus registry for HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Probe Metrics Methods

// IncrementProbesTotal increments the probe sweep counter
func (pm *PrometheusMetrics) IncrementProbesTotal(strategy, status string) {
	pm.probesTotal.WithLabelValues(strategy, status).Inc()
}

// RecordProbeDuration records a probe sweep duration
func (pm *PrometheusMetrics) RecordProbeDuration(strategy string, duration time.Duration) {
	pm.probeDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// IncrementProbeErrors increments the probe error counter
func (pm *PrometheusMetrics) IncrementProbeErrors(strategy, errorType string) {
	pm.probeErrors.WithLabelValues(strategy, errorType).Inc()
}

// IncrementHostsResponded increments the responding host counter
func (pm *PrometheusMetrics) IncrementHostsResponded(strategy, network string, count int) {
	pm.hostsResponded.WithLabelValues(strategy, network).Add(float64(count))
}

// Discovery Metrics Methods

// IncrementCyclesTotal increments the discovery cycle counter
func (pm *PrometheusMetrics) IncrementCyclesTotal(kind, status string) {
	pm.cyclesTotal.WithLabelValues(kind, status).Inc()
}

// RecordCycleDuration records a discovery cycle duration
func (pm *PrometheusMetrics) RecordCycleDuration(kind string, duration time.Duration) {
	pm.cycleDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncrementDiscoveryErrors increments the discovery error counter
func (pm *PrometheusMetrics) IncrementDiscoveryErrors(kind, errorType string) {
	pm.discoveryErrors.WithLabelValues(kind, errorType).Inc()
}

// IncrementDevicesFound increments the devices observed counter
func (pm *PrometheusMetrics) IncrementDevicesFound(kind, network string, count int) {
	pm.devicesFound.WithLabelValues(kind, network).Add(float64(count))
}

// SetActiveCycles sets the number of running discovery cycles
func (pm *PrometheusMetrics) SetActiveCycles(count int) {
	pm.activeCycles.Set(float64(count))
}

// Inventory Metrics Methods

// SetDeviceCounts sets the online and offline device gauges
func (pm *PrometheusMetrics) SetDeviceCounts(online, offline int) {
	pm.devicesOnline.Set(float64(online))
	pm.devicesOffline.Set(float64(offline))
}

// IncrementDevicesEvicted increments the eviction counter
func (pm *PrometheusMetrics) IncrementDevicesEvicted(reason string, count int) {
	pm.devicesEvicted.WithLabelValues(reason).Add(float64(count))
}

// Store Metrics Methods

// IncrementStoreQueries increments the store query counter
func (pm *PrometheusMetrics) IncrementStoreQueries(operation, status string) {
	pm.storeQueries.WithLabelValues(operation, status).Inc()
}

// RecordStoreQueryDuration records a store query duration
func (pm *PrometheusMetrics) RecordStoreQueryDuration(operation string, duration time.Duration) {
	pm.storeQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveConnections sets the number of active store connections
func (pm *PrometheusMetrics) SetActiveConnections(count int) {
	pm.storeConnections.Set(float64(count))
}

// IncrementStoreErrors increments the store error counter
func (pm *PrometheusMetrics) IncrementStoreErrors(operation, errorType string) {
	pm.storeErrors.WithLabelValues(operation, errorType).Inc()
}

// System Metrics Methods

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pm.memoryUsage.Set(float64(memStats.Alloc))
	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())

	pm.lastUpdate = time.Now()
}

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetLastUpdate returns the last metrics update time
func (pm *PrometheusMetrics) GetLastUpdate() time.Time {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.lastUpdate
}

// StartPeriodicUpdates starts a goroutine that periodically updates system metrics
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}

// Global instance for easy access
var globalMetrics *PrometheusMetrics
var metricsOnce sync.Once

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}

// Convenience functions using global instance

// RecordProbeSweep records probe sweep metrics using global metrics
func RecordProbeSweep(strategy, network string, duration time.Duration, hosts int, err error) {
	m := GetGlobalMetrics()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.IncrementProbesTotal(strategy, status)
	m.RecordProbeDuration(strategy, duration)
	if hosts > 0 {
		m.IncrementHostsResponded(strategy, network, hosts)
	}
}

// RecordStoreQuery records device store query metrics using global metrics
func RecordStoreQuery(operation string, duration time.Duration, success bool) {
	m := GetGlobalMetrics()
	status := "success"
	if !success {
		status = "error"
	}
	m.IncrementStoreQueries(operation, status)
	m.RecordStoreQueryDuration(operation, duration)
}
