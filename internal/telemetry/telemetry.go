// Package telemetry exposes Prometheus instrumentation for the bridge.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every bridge metric. It is separate from the default
// registry so embedding hosts decide what to expose.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	callsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapbridge_calls_total",
			Help: "Total number of bridge calls by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	rejectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapbridge_rejections_total",
			Help: "Total number of rejected bridge calls by error code",
		},
		[]string{"code"},
	)

	discardsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapbridge_config_discards_total",
			Help: "Override fields dropped during configure because their type did not match",
		},
		[]string{"field"},
	)

	facadeState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trapbridge_facade_state",
			Help: "1 for the current lifecycle state of the facade, 0 otherwise",
		},
		[]string{"state"},
	)

	journalEntries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapbridge_journal_entries_total",
			Help: "Journal entries flushed to storage by kind",
		},
		[]string{"kind"},
	)

	queueDropped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "trapbridge_queue_overwritten_total",
			Help: "Frames overwritten because the circular queue was full",
		},
	)
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

func ObserveCall(method, outcome string) {
	callsTotal.WithLabelValues(method, outcome).Inc()
}

func ObserveRejection(code string) {
	rejectionsTotal.WithLabelValues(code).Inc()
}

func ObserveDiscard(field string) {
	discardsTotal.WithLabelValues(field).Inc()
}

// SetState marks state as current and clears every other known state.
func SetState(state string, known ...string) {
	for _, s := range known {
		facadeState.WithLabelValues(s).Set(0)
	}
	facadeState.WithLabelValues(state).Set(1)
}

func ObserveJournalFlush(kind string, n int) {
	journalEntries.WithLabelValues(kind).Add(float64(n))
}

func ObserveQueueOverwrite() {
	queueDropped.Inc()
}

// Handler serves the bridge registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
