package server

import (
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/store"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

const metricsNamespace = "attendash"

// Metrics exposes the dashboard KPIs as Prometheus gauges.
type Metrics struct {
	registry *prometheus.Registry

	records        prometheus.Gauge
	defaulters     prometheus.Gauge
	averagePercent prometheus.Gauge
	changes        *prometheus.CounterVec
	clients        prometheus.GaugeFunc
}

// NewMetrics registers the collectors on a private registry. clients
// reports the number of connected websocket clients.
func NewMetrics(clients func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "records",
			Help:      "Number of attendance records in the store.",
		}),
		defaulters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "defaulters",
			Help:      "Number of records below the defaulter threshold.",
		}),
		averagePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "average_attendance_percent",
			Help:      "Mean attendance percent over all records. NaN when undefined.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_changes_total",
			Help:      "Store mutations by kind.",
		}, []string{"kind"}),
		clients: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected dashboard websocket clients.",
		}, func() float64 { return float64(clients()) }),
	}

	m.registry.MustRegister(m.records, m.defaulters, m.averagePercent, m.changes, m.clients)
	return m
}

// Update recomputes the KPI gauges from set.
func (m *Metrics) Update(set types.RecordSet) {
	kpis := presentation.BuildKPIs(set)

	m.records.Set(float64(kpis.Count))
	m.defaulters.Set(float64(kpis.DefaulterCount))
	if kpis.AveragePercent.Defined {
		m.averagePercent.Set(kpis.AveragePercent.Value)
	} else {
		m.averagePercent.Set(math.NaN())
	}
}

// Observe counts one store change.
func (m *Metrics) Observe(ev store.ChangeEvent) {
	m.changes.WithLabelValues(string(ev.Kind)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
