package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ticks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "engine_ticks_total",
			Help:      "Automatic transition passes executed.",
		},
	)

	droppedTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "engine_ticks_dropped_total",
			Help:      "Tick invocations collapsed by the re-entrancy guard.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by source and target state.",
		},
		[]string{"from", "to"},
	)

	spawned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "recurrence_spawned_total",
			Help:      "Bookings spawned by the recurrence engine.",
		},
	)

	safetyOverdue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "safety_checks_overdue_total",
			Help:      "Safety checks escalated to overdue.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clientbook",
			Name:      "notifications_total",
			Help:      "Notifications dispatched by sink outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ticks, droppedTicks, transitions, spawned, safetyOverdue, notifications)
	})
}

func IncTick()        { ticks.Inc() }
func IncDroppedTick() { droppedTicks.Inc() }

func IncTransition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func IncSpawned()       { spawned.Inc() }
func IncSafetyOverdue() { safetyOverdue.Inc() }

func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}
