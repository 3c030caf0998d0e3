package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// DriveMetrics records Google Drive gateway calls.
type DriveMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewDriveMetrics registers the Drive metrics on the provided registerer.
func NewDriveMetrics(reg prometheus.Registerer) *DriveMetrics {
	if reg == nil {
		return &DriveMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drive_calls_total",
		Help: "Google Drive API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drive_call_duration_seconds",
		Help:    "Google Drive API call latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation"})
	reg.MustRegister(calls, duration)
	return &DriveMetrics{calls: calls, duration: duration}
}

// Observe records one Drive call. err decides the outcome label.
func (d *DriveMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if d == nil || d.calls == nil {
		return
	}
	operation = normalizeLabel(operation)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	d.calls.WithLabelValues(operation, outcome).Inc()
	d.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
