// Package metrics exposes Prometheus collectors for ledger operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NoteVault/internal/fault"
)

const namespace = "notevault"

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	notes      *prometheus.CounterVec
	supply     *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "count of orchestrator operations by outcome",
		}, []string{"operation", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "duration of orchestrator operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),

		notes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_total",
			Help:      "count of notes created and destroyed",
		}, []string{"change"}),

		supply: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supply_units_total",
			Help:      "note units entering and leaving the private ledger",
		}, []string{"direction"}),
	}
}

// Observe records the outcome and duration of an operation.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = fault.ClassOf(err).String()
	}

	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Notes records committed note changes.
func (m *Metrics) Notes(created, destroyed int) {
	if m == nil {
		return
	}

	m.notes.WithLabelValues("created").Add(float64(created))
	m.notes.WithLabelValues("destroyed").Add(float64(destroyed))
}

// Supply records units entering (issued) or leaving (retired) the private ledger.
func (m *Metrics) Supply(issued, retired uint64) {
	if m == nil {
		return
	}

	m.supply.WithLabelValues("issued").Add(float64(issued))
	m.supply.WithLabelValues("retired").Add(float64(retired))
}

// RegisterVerifier exports the hit and miss counters of a verifier cache.
func (m *Metrics) RegisterVerifier(stats func() (hits, misses uint64)) {
	if m == nil {
		return
	}

	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifier_cache_hits_total",
			Help:      "confidential transactions served from the verifier cache",
		}, func() float64 {
			hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifier_cache_misses_total",
			Help:      "confidential transactions verified from scratch",
		}, func() float64 {
			_, misses := stats()
			return float64(misses)
		}),
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
