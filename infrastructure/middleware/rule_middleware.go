package middleware

import (
	"context"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

const tracerName = "github.com/ahrav/go-ballot/infrastructure/middleware"

var (
	_ ports.Rule = (*MetricsRule)(nil)
	_ ports.Rule = (*TracingRule)(nil)
)

// MetricsRule decorates a rule and reports every execution to a
// MetricsCollector. It adds no state of its own and is safe for concurrent
// use when the wrapped rule is.
type MetricsRule struct {
	next    ports.Rule
	metrics ports.MetricsCollector
}

// WithMetrics wraps rule so that each execution records latency, status,
// tie-breaks, STV rounds and the winning score.
func WithMetrics(rule ports.Rule, metrics ports.MetricsCollector) *MetricsRule {
	if rule == nil {
		panic("metrics middleware: rule is required")
	}
	if metrics == nil {
		panic("metrics middleware: collector is required")
	}
	return &MetricsRule{next: rule, metrics: metrics}
}

// Name returns the wrapped rule's name.
func (m *MetricsRule) Name() string { return m.next.Name() }

// Validate delegates to the wrapped rule.
func (m *MetricsRule) Validate() error { return m.next.Validate() }

// Unwrap returns the decorated rule.
func (m *MetricsRule) Unwrap() ports.Rule { return m.next }

// Execute runs the wrapped rule and records its metrics.
func (m *MetricsRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	labels := map[string]string{LabelRule: m.next.Name()}

	start := time.Now()
	next, err := m.next.Execute(ctx, state)
	m.metrics.RecordLatency(MetricElectionTime, time.Since(start), labels)

	if err != nil {
		m.metrics.RecordCounter(MetricElections, 1, withLabel(labels, LabelStatus, statusError))
		return next, err
	}
	m.metrics.RecordCounter(MetricElections, 1, withLabel(labels, LabelStatus, statusSuccess))

	outcome, ok := domain.Get(next, domain.KeyOutcome)
	if !ok {
		return next, nil
	}
	if outcome.TieBroken {
		m.metrics.RecordCounter(MetricTieBreaks, 1, withLabel(labels, LabelTieBreakMode, outcome.TieBreak))
	}
	if outcome.Rule == domain.RuleSTV {
		m.metrics.RecordHistogram(MetricSTVRounds, float64(len(outcome.Rounds)), labels)
	}
	m.metrics.RecordGauge(MetricWinnerScore, outcome.Scores[outcome.Winner], labels)
	return next, nil
}

// TracingRule decorates a rule with an OpenTelemetry span per execution.
type TracingRule struct {
	next   ports.Rule
	tracer trace.Tracer
}

// WithTracing wraps rule in a span named "Election.Rule". A nil tracer uses
// the global provider.
func WithTracing(rule ports.Rule, tracer trace.Tracer) *TracingRule {
	if rule == nil {
		panic("tracing middleware: rule is required")
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &TracingRule{next: rule, tracer: tracer}
}

// Name returns the wrapped rule's name.
func (tr *TracingRule) Name() string { return tr.next.Name() }

// Validate delegates to the wrapped rule.
func (tr *TracingRule) Validate() error { return tr.next.Validate() }

// Unwrap returns the decorated rule.
func (tr *TracingRule) Unwrap() ports.Rule { return tr.next }

// Execute runs the wrapped rule inside a span.
func (tr *TracingRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := tr.tracer.Start(ctx, "Election.Rule",
		trace.WithAttributes(attribute.String("rule.id", tr.next.Name())),
	)
	defer span.End()

	if id, ok := domain.Get(state, domain.KeyElectionID); ok {
		span.SetAttributes(attribute.String("election.id", id))
	}

	next, err := tr.next.Execute(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return next, err
	}

	if outcome, ok := domain.Get(next, domain.KeyOutcome); ok {
		span.AddEvent("winner_selected", trace.WithAttributes(
			attribute.String("rule.type", outcome.Rule),
			attribute.Int("winner", int(outcome.Winner)),
			attribute.Bool("tie_broken", outcome.TieBroken),
		))
	}
	span.SetStatus(codes.Ok, "")
	return next, nil
}

// withLabel returns a copy of labels with key set to value.
func withLabel(labels map[string]string, key, value string) map[string]string {
	out := maps.Clone(labels)
	out[key] = value
	return out
}
