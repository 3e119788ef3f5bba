// Package metrics defines the Prometheus collectors for the HTTP surface and
// for storage operations.
package metrics

import (
	"sync"
	"time"

	"github.com/arencloud/strata/internal/errs"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	// StorageOperationsTotal counts storage calls by operation and outcome;
	// outcome is "success" or the error kind.
	StorageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_storage_operations_total",
			Help: "Storage operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_storage_operation_duration_seconds",
			Help:    "Storage operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BytesUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_bytes_uploaded_total",
			Help: "Object bytes written",
		},
	)

	BytesDownloadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_bytes_downloaded_total",
			Help: "Object bytes read",
		},
	)

	Connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "strata_connections",
			Help: "Configured connections",
		},
	)
)

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			StorageOperationsTotal,
			StorageOperationDuration,
			BytesUploadedTotal,
			BytesDownloadedTotal,
			Connections,
		)
		StorageOperationsTotal.WithLabelValues("list_buckets", "success")
	})
}

// Outcome is the label recorded for err.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return errs.KindOf(err).String()
}

// ObserveOperation records one storage call that began at start.
func ObserveOperation(op string, start time.Time, err error) {
	StorageOperationsTotal.WithLabelValues(op, Outcome(err)).Inc()
	StorageOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
