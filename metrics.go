package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the optional instrumentation shared by the Manager and the
// Cache. A nil *Metrics disables collection; the observe methods are safe to
// call either way.
type Metrics struct {
	transitions   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	coalesced     prometheus.Counter
	revalidations prometheus.Counter
	failures      prometheus.Counter
}

// NewMetrics creates the collector set, namespaced under "session".
func NewMetrics() *Metrics {
	return &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Name:      "transitions_total",
			Help:      "Session state machine transitions by from/to status.",
		}, []string{"from", "to"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by hit/miss result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "cache",
			Name:      "coalesced_total",
			Help:      "Lookups served by an already-outstanding producer call.",
		}),
		revalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "cache",
			Name:      "revalidations_total",
			Help:      "Background producer calls started.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "cache",
			Name:      "producer_failures_total",
			Help:      "Producer calls that settled with an error.",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}

	for _, collector := range []prometheus.Collector{
		m.transitions,
		m.cacheLookups,
		m.coalesced,
		m.revalidations,
		m.failures,
	} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// ObserveTransition counts a state machine transition.
func (m *Metrics) ObserveTransition(from, to Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveCacheLookup counts a Get by hit/miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheCoalesced counts a lookup served by an outstanding call.
func (m *Metrics) ObserveCacheCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

// ObserveCacheRevalidation counts a producer call being started.
func (m *Metrics) ObserveCacheRevalidation() {
	if m == nil {
		return
	}
	m.revalidations.Inc()
}

// ObserveCacheFailure counts a failed producer call.
func (m *Metrics) ObserveCacheFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
