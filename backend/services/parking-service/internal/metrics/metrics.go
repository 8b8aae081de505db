package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger holds the counters updated by the session orchestrator.
type Ledger struct {
	registry *prometheus.Registry

	SessionsOpened   prometheus.Counter
	SessionsClosed   prometheus.Counter
	SessionsDeleted  prometheus.Counter
	DayCloseRemoved  prometheus.Counter
	RevenueCollected prometheus.Counter
	Occupied         prometheus.Gauge
	Failures         *prometheus.CounterVec
}

// New registers the ledger metrics on a dedicated registry.
func New() *Ledger {
	reg := prometheus.NewRegistry()
	m := &Ledger{
		registry: reg,
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_opened_total",
			Help: "Sessions opened at the entry gate",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_closed_total",
			Help: "Sessions closed at the exit gate",
		}),
		SessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_deleted_total",
			Help: "Sessions removed by an operator",
		}),
		DayCloseRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_day_close_removed_sessions_total",
			Help: "Sessions purged by day-close runs",
		}),
		RevenueCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_revenue_collected_total",
			Help: "Sum of final amounts charged on exit",
		}),
		Occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parking_spaces_occupied",
			Help: "Active sessions seen by the last occupancy report",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_operation_failures_total",
			Help: "Failed ledger operations by operation and error kind",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(
		m.SessionsOpened,
		m.SessionsClosed,
		m.SessionsDeleted,
		m.DayCloseRemoved,
		m.RevenueCollected,
		m.Occupied,
		m.Failures,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Ledger) Registry() *prometheus.Registry {
	return m.registry
}
