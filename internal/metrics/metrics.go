package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vvka-141/recommit/pkg/recommit"
)

var (
	// AttemptsTotal tracks attempts by classification outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommit_attempts_total",
			Help: "Total number of transaction attempts",
		},
		[]string{"outcome"},
	)

	// ExecutionsTotal tracks completed executions by verdict
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommit_executions_total",
			Help: "Total number of completed executions",
		},
		[]string{"verdict"},
	)

	// BackoffDelay tracks the computed backoff delay before each retry
	BackoffDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommit_backoff_delay_seconds",
			Help:    "Backoff delay scheduled before a retry in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	// RetriesPerExecution tracks how many retries each execution needed
	RetriesPerExecution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommit_retries_per_execution",
			Help:    "Number of retries before an execution reached a verdict",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 15},
		},
	)
)

const outcomeSuccess = "success"

// ObserveAttempt is an executor OnAttempt hook that records each attempt's
// classification and scheduled backoff delay.
func ObserveAttempt(event recommit.AttemptEvent) {
	if event.Err == nil {
		AttemptsTotal.WithLabelValues(outcomeSuccess).Inc()
		return
	}
	AttemptsTotal.WithLabelValues(event.Classification.String()).Inc()
	if event.Delay > 0 {
		BackoffDelay.Observe(event.Delay.Seconds())
	}
}

// ObserveExecution records the terminal verdict and retry count of one
// finished execution. Pass the history and error returned by Execute.
func ObserveExecution(history recommit.History, err error) {
	ExecutionsTotal.WithLabelValues(verdictLabel(err)).Inc()
	if retries := len(history) - 1; retries >= 0 {
		RetriesPerExecution.Observe(float64(retries))
	}
}

func verdictLabel(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var failure *recommit.FailureError
	if errors.As(err, &failure) {
		return failure.Reason.String()
	}
	return "error"
}
