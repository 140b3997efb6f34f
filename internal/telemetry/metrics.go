package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eagleeye"

// Quota decision outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeDenied   = "denied"
	OutcomeFailOpen = "fail_open"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rateLimitRejections *prometheus.CounterVec
	quotaDecisions      *prometheus.CounterVec
	incrementFailures   *prometheus.CounterVec
	completions         *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		rateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejections_total",
			Help:      "Requests rejected by the sliding-window limiter.",
		}, []string{"pool"}),
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Daily quota checks by bot and outcome.",
		}, []string{"bot", "outcome"}),
		incrementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_increment_failures_total",
			Help:      "Usage increments that could not be persisted.",
		}, []string{"bot"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_completions_total",
			Help:      "AI completion calls by bot and outcome.",
		}, []string{"bot", "outcome"}),
	}

	registry.MustRegister(
		m.rateLimitRejections,
		m.quotaDecisions,
		m.incrementFailures,
		m.completions,
	)

	return m
}

func (m *Metrics) RateLimitRejected(pool string) {
	if m == nil {
		return
	}
	m.rateLimitRejections.WithLabelValues(pool).Inc()
}

func (m *Metrics) QuotaDecision(bot, outcome string) {
	if m == nil {
		return
	}
	m.quotaDecisions.WithLabelValues(bot, outcome).Inc()
}

func (m *Metrics) IncrementFailed(bot string) {
	if m == nil {
		return
	}
	m.incrementFailures.WithLabelValues(bot).Inc()
}

func (m *Metrics) Completion(bot string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.completions.WithLabelValues(bot, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
