package bridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/nllfacts/internal/facts"
)

// Metrics holds the bridge's collectors on a private registry.
// Collectors are never registered globally, so several bridges can coexist
// in one process (tests, the CLI's worker pool).
type Metrics struct {
	registry *prometheus.Registry

	openHandles      prometheus.GaugeFunc
	factsRecorded    *prometheus.CounterVec
	computations     *prometheus.CounterVec
	computeLatency   prometheus.Summary
	contractErrors   *prometheus.CounterVec
	errorsFound      *prometheus.CounterVec
	recorderFailures prometheus.Counter
}

func newMetrics(b *Bridge) *Metrics {
	m := &Metrics{
		openHandles: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "nllfacts_open_handles",
				Help: "number of handles currently open",
			},
			func() float64 {
				return float64(b.Live())
			},
		),
		factsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nllfacts_facts_recorded_total",
				Help: "facts appended to unit stores, by relation",
			},
			[]string{"relation"},
		),
		computations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nllfacts_computations_total",
				Help: "engine invocations, by algorithm and status",
			},
			[]string{"algorithm", "status"},
		),
		computeLatency: prometheus.NewSummary(
			prometheus.SummaryOpts{
				Name: "nllfacts_compute_latency_seconds",
				Help: "latency of one engine invocation",
			},
		),
		contractErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nllfacts_contract_errors_total",
				Help: "rejected calls, by contract error code",
			},
			[]string{"code"},
		),
		errorsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nllfacts_errors_found_total",
				Help: "errors reported by the analysis, by kind",
			},
			[]string{"kind"},
		),
		recorderFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nllfacts_recorder_failures_total",
				Help: "computations the recorder failed to persist",
			},
		),
	}

	m.registry = prometheus.NewPedanticRegistry()
	m.registry.MustRegister(
		m.openHandles,
		m.factsRecorded,
		m.computations,
		m.computeLatency,
		m.contractErrors,
		m.errorsFound,
		m.recorderFailures,
	)
	return m
}

// Registry returns the registry holding the bridge's collectors, for
// exposition or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recorded(r facts.Relation) {
	m.factsRecorded.WithLabelValues(r.Name()).Inc()
}

func (m *Metrics) rejected(err error) {
	if ce, ok := err.(*ContractError); ok {
		m.contractErrors.WithLabelValues(string(ce.Code)).Inc()
	}
}
