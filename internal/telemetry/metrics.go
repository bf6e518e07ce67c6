package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes used as the outcome label of BookingsTotal.
const (
	OutcomeBooked          = "booked"
	OutcomeSlotUnavailable = "slot_unavailable"
	OutcomeQuotaExceeded   = "quota_exceeded"
	OutcomeInvalidSlot     = "invalid_slot"
	OutcomeError           = "error"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_bookings_total",
			Help: "Schedule and reschedule attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)
	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_cancellations_total",
			Help: "Check-ins moved from scheduled to cancelled",
		},
	)
	CompletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_completions_total",
			Help: "Check-ins moved from scheduled to completed",
		},
	)
	NotificationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_notifications_failed_total",
			Help: "Confirmation notifications that could not be handed off",
		},
	)
	PurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_purged_total",
			Help: "Bulk purge items by result",
		},
		[]string{"result"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)
