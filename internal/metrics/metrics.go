package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	draftDerived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storio",
			Name:      "draft_derived_total",
			Help:      "Count of booking drafts derived from selection changes.",
		},
	)

	confirmBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storio",
			Name:      "confirm_blocked_total",
			Help:      "Count of confirm attempts blocked by unacknowledged schedule slots.",
		},
	)

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storio",
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storio",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(draftDerived, confirmBlocked, bookingSubmitted, httpRequests)
	})
}

func IncDraftDerived() {
	draftDerived.Inc()
}

func IncConfirmBlocked() {
	confirmBlocked.Inc()
}

func IncBookingSubmitted(outcome string) {
	bookingSubmitted.WithLabelValues(outcome).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
