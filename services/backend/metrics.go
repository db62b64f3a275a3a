package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallDuration tracks backend latency per operation and outcome
	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "milestone_dashboard",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Funding backend request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"operation", "outcome"},
	)

	// CallFailures counts failed calls by failure kind
	CallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "milestone_dashboard",
			Subsystem: "backend",
			Name:      "request_failures_total",
			Help:      "Funding backend request failures by kind",
		},
		[]string{"operation", "kind"},
	)
)

func observeCall(op Operation, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		CallFailures.WithLabelValues(string(op), string(KindOf(err))).Inc()
	}
	CallDuration.WithLabelValues(string(op), outcome).Observe(elapsed.Seconds())
}
