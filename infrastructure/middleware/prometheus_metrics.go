// Package middleware provides cross-cutting concerns for the election engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-ballot/internal/ports"
)

// Metric names understood by PrometheusMetrics. Unknown names passed to a
// Record method are dropped.
const (
	MetricElections    = "elections_total"
	MetricElectionTime = "election"
	MetricTieBreaks    = "tie_breaks_total"
	MetricSTVRounds    = "stv_rounds"
	MetricWinnerScore  = "winner_score"
)

// Label keys read from the labels map.
const (
	LabelRule         = "rule"
	LabelStatus       = "status"
	LabelTieBreakMode = "mode"
)

const (
	metricsNamespace  = "ballot"
	unknownLabelValue = "unknown"
	statusSuccess     = "success"
	statusError       = "error"
	maxRoundBuckets   = 10
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks election counts and latency, how often ties had to
// be broken, STV round counts, and the winning score of each rule.
type PrometheusMetrics struct {
	elections       *prometheus.CounterVec
	electionLatency *prometheus.HistogramVec
	tieBreaks       *prometheus.CounterVec
	stvRounds       *prometheus.HistogramVec
	winnerScore     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// its collectors with reg. A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		elections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricElections,
				Help:      "Total number of rule executions by outcome status.",
			},
			[]string{LabelRule, LabelStatus},
		),
		electionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "election_duration_seconds",
				Help:      "Execution time of a single voting rule.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{LabelRule},
		),
		tieBreaks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricTieBreaks,
				Help:      "Total number of elections decided by a tie-break.",
			},
			[]string{LabelRule, LabelTieBreakMode},
		),
		stvRounds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      MetricSTVRounds,
				Help:      "Number of elimination rounds an STV election needed.",
				Buckets:   prometheus.LinearBuckets(1, 1, maxRoundBuckets),
			},
			[]string{LabelRule},
		),
		winnerScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      MetricWinnerScore,
				Help:      "Score of the winning alternative in the latest election.",
			},
			[]string{LabelRule},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// rule execution time in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	if operation != MetricElectionTime {
		return
	}
	pm.electionLatency.WithLabelValues(labelOrUnknown(labels, LabelRule)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	rule := labelOrUnknown(labels, LabelRule)

	switch metric {
	case MetricElections:
		pm.elections.WithLabelValues(rule, labelOrUnknown(labels, LabelStatus)).Add(value)
	case MetricTieBreaks:
		pm.tieBreaks.WithLabelValues(rule, labelOrUnknown(labels, LabelTieBreakMode)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	if metric != MetricWinnerScore {
		return
	}
	pm.winnerScore.WithLabelValues(labelOrUnknown(labels, LabelRule)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric != MetricSTVRounds {
		return
	}
	pm.stvRounds.WithLabelValues(labelOrUnknown(labels, LabelRule)).Observe(value)
}

func labelOrUnknown(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabelValue
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
