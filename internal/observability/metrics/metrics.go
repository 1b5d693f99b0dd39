package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking outcomes recorded on clinic_booking_attempts_total.
const (
	OutcomeCreated   = "created"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// BookingMetrics exposes counters/histograms for appointment flows.
type BookingMetrics struct {
	attemptsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	meetLinksTotal    prometheus.Counter
	operationDuration *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "booking_attempts_total",
			Help:      "Appointment create attempts by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "appointment_status_transitions_total",
			Help:      "Applied appointment status changes",
		}, []string{"from", "to"}),
		meetLinksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "meet_links_generated_total",
			Help:      "Meeting links generated for online sessions",
		}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Name:      "appointment_operation_seconds",
			Help:      "Latency of appointment service operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.transitionsTotal, m.meetLinksTotal, m.operationDuration)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *BookingMetrics) ObserveMeetLink() {
	if m == nil {
		return
	}
	m.meetLinksTotal.Inc()
}

func (m *BookingMetrics) ObserveOperation(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}
