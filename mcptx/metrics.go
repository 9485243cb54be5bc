package mcptx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible instrumentation for a
// Session, all namespaced "mcptx_":
//
//  1. inflight_requests (gauge, label tool): concurrency gate occupancy.
//  2. attempts_total (counter, labels tool, outcome): one increment per attempt.
//  3. call_duration_ms (histogram, labels tool, final_status): end-to-end call latency.
//  4. dedup_hits_total (counter, label tool): dedup cache hits.
//  5. retries_total (counter, labels tool, error_code): attempts that were retried.
//
// Attaching Metrics to a Session is optional (see WithMetrics); a
// Session with no Metrics configured records nothing.
type Metrics struct {
	inflight  *prometheus.GaugeVec
	attempts  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	dedupHits *prometheus.CounterVec
	retries   *prometheus.CounterVec
}

// NewMetrics registers mcptx's metrics with registry (use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mcptx",
			Name:      "inflight_requests",
			Help:      "Number of calls currently holding a concurrency gate slot.",
		}, []string{"tool"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcptx",
			Name:      "attempts_total",
			Help:      "Total attempts made against the underlying session.",
		}, []string{"tool", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcptx",
			Name:      "call_duration_ms",
			Help:      "End-to-end call duration in milliseconds, across all attempts.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"tool", "final_status"}),
		dedupHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcptx",
			Name:      "dedup_hits_total",
			Help:      "Calls served from the deduplication cache instead of the underlying session.",
		}, []string{"tool"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcptx",
			Name:      "retries_total",
			Help:      "Attempts that failed and were retried, by error code.",
		}, []string{"tool", "error_code"}),
	}
}

func (m *Metrics) observeAttempt(tool, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) observeRetry(tool, errorCode string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(tool, errorCode).Inc()
}

func (m *Metrics) observeDuplicate(tool string) {
	if m == nil {
		return
	}
	m.dedupHits.WithLabelValues(tool).Inc()
}

func (m *Metrics) observeDuration(tool string, status FinalStatus, ms float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(tool, string(status)).Observe(ms)
}

func (m *Metrics) gateAcquired(tool string) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(tool).Inc()
}

func (m *Metrics) gateReleased(tool string) {
	if m == nil {
		return
	}
	m.inflight.WithLabelValues(tool).Dec()
}
