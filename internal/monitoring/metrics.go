package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Total booking operations by outcome",
		},
		[]string{"operation", "status"},
	)

	ticketsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_reserved_total",
			Help: "Total tickets reserved against ticket type quotas",
		},
	)

	ticketsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_released_total",
			Help: "Total tickets released back to ticket type quotas",
		},
	)

	conflictRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_conflict_retries_total",
			Help: "Transaction retries after serialization or lock conflicts",
		},
		[]string{"operation"},
	)

	sweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_sweep_runs_total",
			Help: "Total expiry sweeper passes",
		},
	)

	sweptBookings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_swept_bookings_total",
			Help: "Total pending bookings expired by the sweeper",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweeper passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// ObserveBookingOp records one booking operation and its outcome.
func ObserveBookingOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	bookingOperations.WithLabelValues(operation, status).Inc()
}

// AddReserved counts tickets taken from a quota.
func AddReserved(quantity int) {
	ticketsReserved.Add(float64(quantity))
}

// AddReleased counts tickets returned to a quota.
func AddReleased(quantity int) {
	ticketsReleased.Add(float64(quantity))
}

// RecordConflictRetry counts one retry caused by a concurrency conflict.
func RecordConflictRetry(operation string) {
	conflictRetries.WithLabelValues(operation).Inc()
}

// ObserveSweep records one sweeper pass.
func ObserveSweep(duration time.Duration, swept int) {
	sweepRuns.Inc()
	sweptBookings.Add(float64(swept))
	sweepDuration.Observe(duration.Seconds())
}
