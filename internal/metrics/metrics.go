// Package metrics holds the Prometheus collectors the server exports on
// /metrics. Collectors live on a private registry so tests can build as
// many independent instances as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "diary"

// Result labels.
const (
	ResultSuccess   = "success"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultRejected  = "rejected"
	ResultError     = "error"
)

// Metrics contains the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	EntriesCreated  prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	StreamClients   prometheus.Gauge
	MaintenanceRuns *prometheus.CounterVec
	DiskUsedBytes   prometheus.Gauge
	DiskFreeBytes   prometheus.Gauge
	MemoryUsedRatio prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
		EntriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_created_total",
			Help:      "Diary entries stored",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected live entry stream clients",
		}),
		MaintenanceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_runs_total",
			Help:      "Scheduled storage maintenance runs by result",
		}, []string{"result"}),
		DiskUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "data_dir_used_bytes",
			Help:      "Used bytes on the filesystem holding the data directory",
		}),
		DiskFreeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "data_dir_free_bytes",
			Help:      "Free bytes on the filesystem holding the data directory",
		}),
		MemoryUsedRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_memory_used_ratio",
			Help:      "Fraction of host memory in use",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.Registrations, m.Logins, m.EntriesCreated,
		m.HTTPRequests, m.HTTPDuration, m.StreamClients,
		m.MaintenanceRuns, m.DiskUsedBytes, m.DiskFreeBytes, m.MemoryUsedRatio,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordRegistration counts one registration attempt by result.
func (m *Metrics) RecordRegistration(result string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

// RecordLogin counts one login attempt by result.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// RecordEntryCreated counts one stored diary entry.
func (m *Metrics) RecordEntryCreated() {
	if m == nil {
		return
	}
	m.EntriesCreated.Inc()
}

// RecordRequest observes one finished HTTP request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetStreamClients sets the number of connected stream clients.
func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.StreamClients.Set(float64(n))
}

// RecordMaintenance counts one maintenance run by result.
func (m *Metrics) RecordMaintenance(result string) {
	if m == nil {
		return
	}
	m.MaintenanceRuns.WithLabelValues(result).Inc()
}

// SetHostStats publishes the latest disk and memory sample.
func (m *Metrics) SetHostStats(diskUsed, diskFree uint64, memUsedPercent float64) {
	if m == nil {
		return
	}
	m.DiskUsedBytes.Set(float64(diskUsed))
	m.DiskFreeBytes.Set(float64(diskFree))
	m.MemoryUsedRatio.Set(memUsedPercent / 100)
}
