package observability

import (
	"time"

	"github.com/usethallo/thallo-api/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the Thallo API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	detectorRuns    *prometheus.CounterVec
	scoresComputed  prometheus.Counter
	tokensUsed      *prometheus.CounterVec
	insightCalls    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thallo_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		detectorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_recurring_detector_runs_total",
				Help: "Recurring charge detector invocations by outcome.",
			},
			[]string{"outcome"},
		),
		scoresComputed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "thallo_scores_computed_total",
				Help: "Financial health scores computed.",
			},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_llm_tokens_total",
				Help: "Total LLM tokens consumed by insights.",
			},
			[]string{"type"},
		),
		insightCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thallo_insight_calls_total",
				Help: "Insight completions by status.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrDetectorRun records a detector invocation. Outcome is one of
// "cached", "computed" or "error".
func (m *Metrics) IncrDetectorRun(outcome string) {
	m.detectorRuns.WithLabelValues(outcome).Inc()
}

// IncrScoreComputed records one health score calculation.
func (m *Metrics) IncrScoreComputed() {
	m.scoresComputed.Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrInsightCall increments the insight call counter with a status label.
func (m *Metrics) IncrInsightCall(status string) {
	m.insightCalls.WithLabelValues(status).Inc()
}

// GetInsightsSnapshot returns a snapshot of insight-related metrics suitable
// for the GET /v1/metrics/insights endpoint.
func (m *Metrics) GetInsightsSnapshot() *domain.InsightsMetrics {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	totalCalls := getCounterValue(m.insightCalls, "success") +
		getCounterValue(m.insightCalls, "error")
	errorCount := getCounterValue(m.insightCalls, "error")
	cacheHits := getCounterValue(m.cacheHits, "recurring")
	cacheMisses := getCounterValue(m.cacheMisses, "recurring")

	totalTokens := promptTokens + completionTokens
	avgTokens := float64(0)
	errorRate := float64(0)
	cacheHitRate := float64(0)

	if totalCalls > 0 {
		avgTokens = totalTokens / totalCalls
		errorRate = errorCount / totalCalls
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// Estimated cost for the default OpenRouter model tier:
	// ~$0.003/1k prompt tokens, ~$0.015/1k completion tokens.
	estimatedCost := (promptTokens/1000)*0.003 + (completionTokens/1000)*0.015

	return &domain.InsightsMetrics{
		TotalRequests:    int64(totalCalls),
		ErrorRate:        errorRate,
		AvgTokensPerCall: avgTokens,
		EstimatedCostUsd: estimatedCost,
		CacheHitRate:     cacheHitRate,
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
