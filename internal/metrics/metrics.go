// Package metrics holds the Prometheus collectors of the service. All methods
// are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/erazemk/shramba/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shramba"

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ledgerOps       *prometheus.CounterVec
	reserveRejects  *prometheus.CounterVec
	appointmentOps  *prometheus.CounterVec
	jobTransitions  prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors, along with the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger mutations by operation and result.",
		}, []string{"op", "result"}),
		reserveRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_rejections_total",
			Help:      "Rejected reservations by error kind.",
		}, []string{"kind"}),
		appointmentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_operations_total",
			Help:      "Appointment operations by operation and result.",
		}, []string{"op", "result"}),
		jobTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_expirations_total",
			Help:      "Jobs moved to unavailable after their deadline.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ledgerOps,
		m.reserveRejects,
		m.appointmentOps,
		m.jobTransitions,
		m.requestDuration,
	)
	return m
}

// Result turns an operation error into a label value: "ok", the domain
// error kind, or "error".
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := model.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// LedgerOp counts one ledger mutation.
func (m *Metrics) LedgerOp(op string, err error) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, Result(err)).Inc()
}

// ReservationRejected counts a failed reservation.
func (m *Metrics) ReservationRejected(err error) {
	if m == nil || err == nil {
		return
	}
	m.reserveRejects.WithLabelValues(Result(err)).Inc()
}

// AppointmentOp counts one appointment operation.
func (m *Metrics) AppointmentOp(op string, err error) {
	if m == nil {
		return
	}
	m.appointmentOps.WithLabelValues(op, Result(err)).Inc()
}

// JobExpired counts jobs that became unavailable.
func (m *Metrics) JobExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.jobTransitions.Add(float64(n))
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
