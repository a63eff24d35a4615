// Package metrics provides Prometheus metrics collection for the
// governance engine.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors exposed by the engine.
type Metrics struct {
	// HTTP metrics (agent-facing API)
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Circuit breaker state, one gauge per provider (0=closed, 1=half-open, 2=open)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit pipeline
	AuditQueueDepth  prometheus.Gauge
	AuditWritesTotal *prometheus.CounterVec

	// LLM Gateway health probes
	HealthProbesTotal *prometheus.CounterVec

	// Dependency conflicts detected by the PSMP engine
	ConflictsTotal *prometheus.CounterVec

	// Storage backend
	StorageOpsTotal    *prometheus.CounterVec
	StorageOpsDuration *prometheus.HistogramVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "code", "operation"},
		),

		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "llm_provider_circuit_breaker_state",
				Help: "Circuit breaker state per LLM provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		AuditQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_queue_depth",
				Help: "Current depth of the compliance audit writer queue",
			},
		),
		AuditWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_writes_total",
				Help: "Total number of audit log append attempts",
			},
			[]string{"organization", "status"},
		),

		HealthProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_provider_health_probes_total",
				Help: "Total number of provider health probes",
			},
			[]string{"provider", "result"},
		),

		ConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dependency_conflicts_total",
				Help: "Total number of dependency conflicts detected",
			},
			[]string{"severity"},
		),

		StorageOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_operations_total",
				Help: "Total number of storage backend operations",
			},
			[]string{"operation", "status"},
		),
		StorageOpsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_operation_duration_seconds",
				Help:    "Storage backend operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.CircuitBreakerState,
			m.AuditQueueDepth,
			m.AuditWritesTotal,
			m.HealthProbesTotal,
			m.ConflictsTotal,
			m.StorageOpsTotal,
			m.StorageOpsDuration,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0").Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error by its ServiceError code and the operation
// that raised it.
func (m *Metrics) RecordError(service, code, operation string) {
	m.ErrorsTotal.WithLabelValues(service, code, operation).Inc()
}

// SetCircuitBreakerState records the current circuit state for a provider.
// state must be one of 0 (closed), 1 (half-open), 2 (open).
func (m *Metrics) SetCircuitBreakerState(provider string, state float64) {
	m.CircuitBreakerState.WithLabelValues(provider).Set(state)
}

// SetAuditQueueDepth records the current backlog of the audit writer queue,
// used to detect the high-water-mark backpressure condition.
func (m *Metrics) SetAuditQueueDepth(depth int) {
	m.AuditQueueDepth.Set(float64(depth))
}

// RecordAuditWrite records an audit append attempt and its outcome.
func (m *Metrics) RecordAuditWrite(organization, status string) {
	m.AuditWritesTotal.WithLabelValues(organization, status).Inc()
}

// RecordHealthProbe records the outcome of an LLM provider health probe.
func (m *Metrics) RecordHealthProbe(provider, result string) {
	m.HealthProbesTotal.WithLabelValues(provider, result).Inc()
}

// RecordConflict records a dependency conflict by severity.
func (m *Metrics) RecordConflict(severity string) {
	m.ConflictsTotal.WithLabelValues(severity).Inc()
}

// RecordStorageOp records a storage backend operation and its duration.
func (m *Metrics) RecordStorageOp(operation, status string, duration time.Duration) {
	m.StorageOpsTotal.WithLabelValues(operation, status).Inc()
	m.StorageOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateUptime updates the service uptime gauge.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter.
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter.
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

// Enabled returns whether Prometheus metrics should be exposed, controlled
// by the METRICS_ENABLED environment variable; defaults to enabled.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return true
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance.
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("governance-core")
	}
	return globalMetrics
}
