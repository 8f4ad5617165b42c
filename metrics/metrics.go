package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lending counters. A nil *Metrics records nothing.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Expired     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_access_decisions_total",
			Help: "Total number of RFID tap decisions by action and reason.",
		}, []string{"action", "reason"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_transitions_total",
			Help: "Total number of transaction status transitions by target status.",
		}, []string{"to"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_failures_total",
			Help: "Total number of failed lending operations by operation and error kind.",
		}, []string{"op", "kind"}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Name: "lending_expired_total",
			Help: "Total number of reservations expired by the sweeper.",
		}),
	}
}

func (m *Metrics) Decision(action, reason string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action, reason).Inc()
}

func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) Failure(op, kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) ExpiredInc() {
	if m == nil {
		return
	}
	m.Expired.Inc()
}
