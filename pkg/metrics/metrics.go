// Package metrics provides Prometheus metrics collection for DittoDrive.
//
// Metrics are optional: a nil *DriveMetrics is a valid no-op instance, so
// components take the struct without caring whether collection is enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DriveMetrics collects HTTP and storage operation metrics. All methods are
// safe for concurrent use and safe on a nil receiver.
type DriveMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	uploadsTotal    prometheus.Counter
	downloadsTotal  prometheus.Counter
	nodesRemoved    prometheus.Counter
	inconsistencies prometheus.Counter
}

// New creates a DriveMetrics instance with its own Prometheus registry,
// including the standard Go runtime and process collectors.
func New() *DriveMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &DriveMetrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dittodrive_http_requests_total",
			Help: "Total HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dittodrive_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dittodrive_uploads_total",
			Help: "Total successfully placed uploads",
		}),
		downloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dittodrive_downloads_total",
			Help: "Total successfully served downloads",
		}),
		nodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dittodrive_nodes_removed_total",
			Help: "Total metadata records removed by deletes",
		}),
		inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dittodrive_storage_inconsistencies_total",
			Help: "Observed metadata/physical storage inconsistencies",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.uploadsTotal,
		m.downloadsTotal,
		m.nodesRemoved,
		m.inconsistencies,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this instance's registry.
func (m *DriveMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveRequest records one completed HTTP request.
func (m *DriveMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpload counts a successfully placed upload.
func (m *DriveMetrics) RecordUpload() {
	if m == nil {
		return
	}
	m.uploadsTotal.Inc()
}

// RecordDownload counts a successfully served download.
func (m *DriveMetrics) RecordDownload() {
	if m == nil {
		return
	}
	m.downloadsTotal.Inc()
}

// RecordNodesRemoved counts records removed by a delete.
func (m *DriveMetrics) RecordNodesRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.nodesRemoved.Add(float64(n))
}

// RecordInconsistency counts an observed storage inconsistency.
func (m *DriveMetrics) RecordInconsistency() {
	if m == nil {
		return
	}
	m.inconsistencies.Inc()
}
