// Package metrics defines the Prometheus collectors pvforge updates while it
// talks to the Proxmox API. Collectors register with the default registry,
// which WriteTextfile exports for the node exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API Metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pvforge",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of Proxmox API requests by method and result",
	}, []string{"method", "result"})

	APIRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pvforge",
		Subsystem: "api",
		Name:      "request_latency_seconds",
		Help:      "Latency of Proxmox API requests",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})
)

// Task Metrics
var (
	TaskPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pvforge",
		Subsystem: "task",
		Name:      "status_queries_total",
		Help:      "Total number of task status queries by task type",
	}, []string{"type"})

	TaskWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pvforge",
		Subsystem: "task",
		Name:      "wait_duration_seconds",
		Help:      "Time spent waiting for asynchronous tasks to finish",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"type", "result"})

	TaskTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pvforge",
		Subsystem: "task",
		Name:      "timeouts_total",
		Help:      "Total number of tasks that did not finish within their timeout",
	}, []string{"type"})
)

// Storage Metrics
var (
	UploadsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pvforge",
		Subsystem: "storage",
		Name:      "uploads_skipped_total",
		Help:      "Total number of uploads skipped because the file was already in storage",
	})
)

// Task results used as the "result" label of TaskWaitDuration.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// WriteTextfile writes every metric of the default registry to path in the
// text exposition format. The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
