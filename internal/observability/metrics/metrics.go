package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking and notification flows.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	conflictsTotal     prometheus.Counter
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "sessions",
			Name:      "lifecycle_total",
			Help:      "Session lifecycle operations by resulting status",
		}, []string{"status"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "sessions",
			Name:      "conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Email notification deliveries by event type and outcome",
		}, []string{"event_type", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveLifecycle(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *BookingMetrics) ObserveNotification(eventType, outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(eventType, outcome).Inc()
}
