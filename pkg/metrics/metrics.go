// Package metrics exposes Prometheus collectors for registry activity.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without checking it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "panda_registry"

// Put results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Walk modes.
const (
	ModeGenerate = "generate"
	ModeCheck    = "check"
)

// Metrics holds the registry collectors.
type Metrics struct {
	registry *prometheus.Registry

	putsTotal      *prometheus.CounterVec   // by kind and result
	walksTotal     *prometheus.CounterVec   // by mode
	linesTotal     prometheus.Counter       // change-set lines emitted
	walkDuration   *prometheus.HistogramVec // by mode
	refreshesTotal *prometheus.CounterVec   // by bus
	formatErrors   prometheus.Counter
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		putsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "puts_total",
			Help:      "Client writes by kind and result",
		}, []string{"kind", "result"}),

		walksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "changeset",
			Name:      "walks_total",
			Help:      "Change-set walks by mode",
		}, []string{"mode"}),

		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "changeset",
			Name:      "lines_total",
			Help:      "Lines emitted by change-set walks",
		}),

		walkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "changeset",
			Name:      "duration_seconds",
			Help:      "Change-set walk duration in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"mode"}),

		refreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_refreshes_total",
			Help:      "Hardware bus snapshots taken, by bus",
		}, []string{"bus"}),

		formatErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "format_errors_total",
			Help:      "Entities reported with an error marker",
		}),
	}

	m.registry.MustRegister(
		m.putsTotal,
		m.walksTotal,
		m.linesTotal,
		m.walkDuration,
		m.refreshesTotal,
		m.formatErrors,
	)
	return m
}

// Registry returns the Prometheus registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler serving the collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePut counts one client write.
func (m *Metrics) ObservePut(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.putsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveWalk records one change-set walk.
func (m *Metrics) ObserveWalk(mode string, lines int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.walksTotal.WithLabelValues(mode).Inc()
	m.linesTotal.Add(float64(lines))
	m.walkDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveRefresh counts one hardware bus snapshot.
func (m *Metrics) ObserveRefresh(bus string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(bus).Inc()
}

// ObserveFormatError counts one entity reported with an error marker.
func (m *Metrics) ObserveFormatError() {
	if m == nil {
		return
	}
	m.formatErrors.Inc()
}
