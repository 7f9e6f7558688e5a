package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "escrow"

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Number of escrow operations by result.",
		},
		[]string{"operation", "result"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of escrow operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	tradesFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_finalized_total",
			Help:      "Number of finalized trades.",
		},
	)
	compensationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensation_failures_total",
			Help:      "Number of reverse transfers that failed during a rollback.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		operationsTotal, operationDuration, tradesFinalized, compensationFailures,
	)
}

// ObserveOperation records the outcome and the duration of an operation
// started at the given time.
func ObserveOperation(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(
		time.Since(start).Seconds(),
	)
}

// IncFinalizedTrades increments the counter of finalized trades.
func IncFinalizedTrades() {
	tradesFinalized.Inc()
}

// IncCompensationFailures increments the counter of failed reverse
// transfers.
func IncCompensationFailures() {
	compensationFailures.Inc()
}
