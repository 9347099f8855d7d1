package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	llmCalls        *prometheus.CounterVec
	syncOutcomes    *prometheus.CounterVec
	confirmations   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	syncDropped     prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "counto_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counto_llm_calls_total",
				Help: "LLM completions by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		syncOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counto_sync_total",
				Help: "Mirror jobs by adapter and outcome.",
			},
			[]string{"adapter", "outcome"},
		),
		confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counto_pending_resolutions_total",
				Help: "Pending transactions resolved, by outcome.",
			},
			[]string{"outcome"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counto_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "counto_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		syncDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "counto_sync_dropped_total",
				Help: "Mirror jobs dropped because the queue was full.",
			},
		),
	}
}

func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncrLLMCall(provider, outcome string) {
	m.llmCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) IncrSync(adapter, outcome string) {
	m.syncOutcomes.WithLabelValues(adapter, outcome).Inc()
}

func (m *Metrics) IncrSyncDropped() {
	m.syncDropped.Inc()
}

// IncrResolution counts confirm/cancel/rejected outcomes.
func (m *Metrics) IncrResolution(outcome string) {
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}
