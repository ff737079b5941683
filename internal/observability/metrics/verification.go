package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driveon/idverify/internal/core/domain"
)

// VerificationMetrics tracks vision-model usage and batch reconciliation. It
// satisfies the use-case recorder interfaces.
type VerificationMetrics struct {
	registry *prometheus.Registry

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	tokensTotal      *prometheus.CounterVec
	escalationsTotal *prometheus.CounterVec
	reconcileTotal   *prometheus.CounterVec
}

func NewVerificationMetrics(service string) *VerificationMetrics {
	registry := prometheus.NewRegistry()

	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idv",
			Subsystem: "vision",
			Name:      "analysis_total",
			Help:      "Total vision-model analysis calls by path and status.",
		},
		[]string{"service", "path", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "idv",
			Subsystem: "vision",
			Name:      "analysis_duration_seconds",
			Help:      "Vision-model analysis duration in seconds by path.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "path"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idv",
			Subsystem: "vision",
			Name:      "tokens_total",
			Help:      "Token usage by direction and model.",
		},
		[]string{"service", "direction", "model"},
	)
	escalationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idv",
			Subsystem: "vision",
			Name:      "escalations_total",
			Help:      "Escalated verification passes by outcome.",
		},
		[]string{"service", "outcome"},
	)
	reconcileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idv",
			Subsystem: "batch",
			Name:      "reconciled_items_total",
			Help:      "Batch items reconciled onto bookings by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(analysisTotal, analysisDuration, tokensTotal, escalationsTotal, reconcileTotal)

	return &VerificationMetrics{
		registry:         registry,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		tokensTotal:      tokensTotal,
		escalationsTotal: escalationsTotal,
		reconcileTotal:   reconcileTotal,
	}
}

func (m *VerificationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *VerificationMetrics) RecordAnalysis(path domain.VerificationPath, model string, usage domain.TokenUsage, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.analysisTotal.WithLabelValues("idverify", string(path), status).Inc()
	m.analysisDuration.WithLabelValues("idverify", string(path)).Observe(duration.Seconds())

	if model == "" {
		model = "unknown"
	}
	if usage.InputTokens > 0 {
		m.tokensTotal.WithLabelValues("idverify", "in", model).Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		m.tokensTotal.WithLabelValues("idverify", "out", model).Add(float64(usage.OutputTokens))
	}
	if usage.CacheReadTokens > 0 {
		m.tokensTotal.WithLabelValues("idverify", "cache_read", model).Add(float64(usage.CacheReadTokens))
	}
}

func (m *VerificationMetrics) RecordEscalation(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.escalationsTotal.WithLabelValues("idverify", outcome).Inc()
}

func (m *VerificationMetrics) RecordReconcile(succeeded, failed int) {
	if succeeded > 0 {
		m.reconcileTotal.WithLabelValues("idverify", "success").Add(float64(succeeded))
	}
	if failed > 0 {
		m.reconcileTotal.WithLabelValues("idverify", "error").Add(float64(failed))
	}
}
