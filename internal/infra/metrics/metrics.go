// Package metrics provides Prometheus metrics for the orchestration core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for Sous.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Inference metrics
	InferenceCallsTotal *prometheus.CounterVec
	InferenceLatency    *prometheus.HistogramVec
	InferenceRetries    prometheus.Counter
	TokensTotal         *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal prometheus.Counter
	CacheWritesTotal prometheus.Counter

	// Orchestration metrics
	ToolCallsTotal       *prometheus.CounterVec
	FallbackSynthesized  prometheus.Counter
	DegradedResultsTotal prometheus.Counter
}

// New registers all collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all collectors on the given registry.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate
// registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := func(c prometheus.Collector) {
		reg.MustRegister(c)
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sous_requests_total",
				Help: "Total orchestration requests by task and selected tier",
			},
			[]string{"task", "tier"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sous_request_duration_seconds",
				Help:    "End-to-end orchestration request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		InferenceCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sous_inference_calls_total",
				Help: "Provider calls by tier and outcome",
			},
			[]string{"tier", "status"},
		),
		InferenceLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sous_inference_latency_seconds",
				Help:    "Provider call latency by tier",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tier"},
		),
		InferenceRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sous_inference_retries_total",
				Help: "Total provider call retries",
			},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sous_tokens_total",
				Help: "Tokens consumed by tier and direction",
			},
			[]string{"tier", "direction"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sous_cache_hits_total",
				Help: "Response cache hits by layer",
			},
			[]string{"layer"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sous_cache_misses_total",
				Help: "Response cache misses",
			},
		),
		CacheWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sous_cache_writes_total",
				Help: "Response cache write-throughs",
			},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sous_tool_calls_total",
				Help: "Tool executions by tool name and outcome",
			},
			[]string{"tool", "status"},
		),
		FallbackSynthesized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sous_fallback_synthesized_total",
				Help: "Meal-plan slots filled by the deterministic fallback generator",
			},
		),
		DegradedResultsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sous_degraded_results_total",
				Help: "Requests answered with a degraded (rule-based or canned) result",
			},
		),
	}

	factory(m.RequestsTotal)
	factory(m.RequestDuration)
	factory(m.InferenceCallsTotal)
	factory(m.InferenceLatency)
	factory(m.InferenceRetries)
	factory(m.TokensTotal)
	factory(m.CacheHitsTotal)
	factory(m.CacheMissesTotal)
	factory(m.CacheWritesTotal)
	factory(m.ToolCallsTotal)
	factory(m.FallbackSynthesized)
	factory(m.DegradedResultsTotal)

	return m
}

// Nop returns a Metrics instance backed by a throwaway registry.
// Used by tests and by services constructed without observability wiring.
func Nop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
