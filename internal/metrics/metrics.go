package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Purchases counts ticket purchase attempts by outcome
	// (ok, unavailable, invalid, failed).
	Purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "purchases_total",
			Help:      "The total number of ticket purchase attempts",
		},
		[]string{"result"},
	)

	// SeatTransitions counts seat state changes (occupy, release) and
	// whether they changed anything.
	SeatTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "seat_transitions_total",
			Help:      "The total number of seat occupy/release calls",
		},
		[]string{"transition", "changed"},
	)

	// EventPublishFailures counts ticket events that could not be published.
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "event_publish_failures_total",
			Help:      "The total number of ticket events that failed to publish",
		},
	)
)
