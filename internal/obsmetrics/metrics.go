// Package obsmetrics defines the Prometheus metrics of both daemons, grounded
// on the metrics package shape used across the example pack's gateway
// services. Handler serves them on brain-server's /metrics endpoint; the
// spawn and running-task metrics are recorded inside brain-runner, which
// serves no /metrics endpoint, so they do not appear there.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "brain"
	subsystemHTTP   = "http"
	subsystemRunner = "runner"
	subsystemSpawn  = "spawn"
)

var (
	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemHTTP,
			Name:      "requests_total",
			Help:      "Total number of brain-server HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration measures request latency by route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemHTTP,
			Name:      "request_duration_seconds",
			Help:      "brain-server HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// SpawnAttemptsTotal counts task spawn attempts by project and outcome.
	SpawnAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpawn,
			Name:      "attempts_total",
			Help:      "Total number of task spawn attempts",
		},
		[]string{"project", "outcome"},
	)

	// RunningTasks gauges the number of in-flight tasks per project, sampled
	// once per supervisor tick.
	RunningTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRunner,
			Name:      "running_tasks",
			Help:      "Number of tasks currently running for a project",
		},
		[]string{"project"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration, SpawnAttemptsTotal, RunningTasks)
}

// RecordSpawnAttempt records a task spawn attempt's outcome ("success" or
// "failure") for project.
func RecordSpawnAttempt(project, outcome string) {
	SpawnAttemptsTotal.WithLabelValues(project, outcome).Inc()
}

// SetRunningTasks records how many tasks are running for project at the
// moment a tick completed.
func SetRunningTasks(project string, count int) {
	RunningTasks.WithLabelValues(project).Set(float64(count))
}

// Handler returns the promhttp handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
