package metrics

import "github.com/prometheus/client_golang/prometheus"

// Assignment results.
const (
	ResultAssigned  = "assigned"
	ResultInvalid   = "invalid"
	ResultNoDrivers = "no_drivers"
	ResultConflict  = "conflict"
	ResultError     = "error"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	AssignmentsTotal          *prometheus.CounterVec
	ReservationConflictsTotal prometheus.Counter
	CompensationsTotal        prometheus.Counter
	StatusUpdatesTotal        *prometheus.CounterVec
	NotificationFailuresTotal *prometheus.CounterVec
	EventPublishFailuresTotal prometheus.Counter
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		AssignmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_assignments_total",
			Help: "Delivery assignment attempts by result",
		}, []string{"result"}),
		ReservationConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_driver_reservation_conflicts_total",
			Help: "Driver reservations lost to a concurrent assignment",
		}),
		CompensationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_driver_compensations_total",
			Help: "Drivers released after a failed delivery create",
		}),
		StatusUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_status_updates_total",
			Help: "Committed delivery status transitions by target status",
		}, []string{"status"}),
		NotificationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delivery_notification_failures_total",
			Help: "Best-effort notifications that failed, by channel",
		}, []string{"channel"}),
		EventPublishFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_event_publish_failures_total",
			Help: "Delivery events that could not be published",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.AssignmentsTotal,
		m.ReservationConflictsTotal,
		m.CompensationsTotal,
		m.StatusUpdatesTotal,
		m.NotificationFailuresTotal,
		m.EventPublishFailuresTotal,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Assignment(result string) {
	if m == nil {
		return
	}
	m.AssignmentsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ReservationConflict() {
	if m == nil {
		return
	}
	m.ReservationConflictsTotal.Inc()
}

func (m *Metrics) Compensation() {
	if m == nil {
		return
	}
	m.CompensationsTotal.Inc()
}

func (m *Metrics) StatusUpdate(status string) {
	if m == nil {
		return
	}
	m.StatusUpdatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) NotificationFailure(channel string) {
	if m == nil {
		return
	}
	m.NotificationFailuresTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) EventPublishFailure() {
	if m == nil {
		return
	}
	m.EventPublishFailuresTotal.Inc()
}
