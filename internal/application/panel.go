// Package application wires voting rules from configuration into panels
// that run them over an election.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-ballot/infrastructure/ballots"
	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// Panel errors.
var (
	// ErrEmptyPanel is returned when a panel is built without rules.
	ErrEmptyPanel = errors.New("panel has no rules")

	// ErrDuplicateRule is returned when two rules share an id.
	ErrDuplicateRule = errors.New("duplicate rule id")

	// ErrNoCatalog is returned when labelled ballots are given to a panel
	// configured without alternative labels.
	ErrNoCatalog = errors.New("panel has no alternative labels")
)

// Panel runs a set of voting rules over the same election and collects
// their outcomes under domain.KeyOutcomes, keyed by rule id.
// A Panel is immutable after construction and safe for concurrent use.
type Panel struct {
	name     string
	tieBreak *domain.TieBreak
	catalog  *ballots.Catalog
	rules    []ports.Rule
	logger   *slog.Logger
	limit    int
}

// PanelOption configures a Panel.
type PanelOption func(*panelOptions)

type panelOptions struct {
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	tracer     trace.Tracer
	tracing    bool
	limit      int
	tieBreak   *domain.TieBreak
	catalog    *ballots.Catalog
	neutrality bool
	rateLimit  rate.Limit
	rateBurst  int
}

// WithLogger sets the logger. Panels log nothing by default.
func WithLogger(logger *slog.Logger) PanelOption {
	return func(o *panelOptions) { o.logger = logger }
}

// WithMetricsCollector reports every rule execution to collector.
func WithMetricsCollector(collector ports.MetricsCollector) PanelOption {
	return func(o *panelOptions) { o.metrics = collector }
}

// WithTracer wraps every rule in a span. A nil tracer uses the global
// provider.
func WithTracer(tracer trace.Tracer) PanelOption {
	return func(o *panelOptions) {
		o.tracer = tracer
		o.tracing = true
	}
}

// WithConcurrencyLimit bounds how many rules run at once. Values below one
// select the default of twice the CPU count.
func WithConcurrencyLimit(limit int) PanelOption {
	return func(o *panelOptions) { o.limit = limit }
}

// WithDefaultTieBreak sets the tie-break used when neither the rule nor
// the input state names one.
func WithDefaultTieBreak(tb domain.TieBreak) PanelOption {
	return func(o *panelOptions) { o.tieBreak = &tb }
}

// WithCatalog names the alternatives, enabling ElectBallots and labelled
// winners.
func WithCatalog(catalog *ballots.Catalog) PanelOption {
	return func(o *panelOptions) { o.catalog = catalog }
}

// WithNeutralityCheck re-runs every rule with the alternatives relabeled
// and fails the election if an untied winner changes.
func WithNeutralityCheck() PanelOption {
	return func(o *panelOptions) { o.neutrality = true }
}

// WithRateLimit paces rule executions across the whole panel to limit per
// second with the given burst. A zero limit disables pacing.
func WithRateLimit(limit rate.Limit, burst int) PanelOption {
	return func(o *panelOptions) {
		o.rateLimit = limit
		o.rateBurst = burst
	}
}

// NewPanel validates the rules and applies the options. Each rule is
// wrapped from the inside out by the neutrality check, the rate limiter,
// tracing and metrics, so recorded latency includes the wait and the span.
func NewPanel(name string, rules []ports.Rule, opts ...PanelOption) (*Panel, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyPanel
	}

	o := panelOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.limit < 1 {
		o.limit = runtime.NumCPU() * 2
	}

	var limiter *rate.Limiter
	if o.rateLimit > 0 {
		limiter = rate.NewLimiter(o.rateLimit, max(o.rateBurst, 1))
	}

	seen := make(map[string]struct{}, len(rules))
	wrapped := make([]ports.Rule, len(rules))
	for i, rule := range rules {
		if rule == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		if _, dup := seen[rule.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Name())
		}
		seen[rule.Name()] = struct{}{}

		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}

		if o.neutrality {
			rule = middleware.WithNeutralityCheck(rule)
		}
		if limiter != nil {
			rule = middleware.WithRateLimit(rule, limiter)
		}
		if o.tracing {
			rule = middleware.WithTracing(rule, o.tracer)
		}
		if o.metrics != nil {
			rule = middleware.WithMetrics(rule, o.metrics)
		}
		wrapped[i] = rule
	}

	return &Panel{
		name:     name,
		tieBreak: o.tieBreak,
		catalog:  o.catalog,
		rules:    wrapped,
		logger:   o.logger.With("panel", name),
		limit:    o.limit,
	}, nil
}

// Name returns the panel name.
func (p *Panel) Name() string { return p.name }

// RuleIDs returns the ids of the panel's rules in configuration order.
func (p *Panel) RuleIDs() []string {
	ids := make([]string, len(p.rules))
	for i, r := range p.rules {
		ids[i] = r.Name()
	}
	return ids
}

// DefaultTieBreak returns the panel's default tie-break, if it has one.
func (p *Panel) DefaultTieBreak() (domain.TieBreak, bool) {
	if p.tieBreak == nil {
		return domain.TieBreak{}, false
	}
	return *p.tieBreak, true
}

// Catalog returns the panel's alternative labels, if it has them.
func (p *Panel) Catalog() (*ballots.Catalog, bool) {
	return p.catalog, p.catalog != nil
}

// Run executes every rule over state concurrently. The returned state
// carries an election id, the outcomes keyed by rule id, and the default
// tie-break if one was applied. The first rule error cancels the
// remaining rules and is returned.
func (p *Panel) Run(ctx context.Context, state domain.State) (domain.State, error) {
	id, ok := domain.Get(state, domain.KeyElectionID)
	if !ok || id == "" {
		id = uuid.NewString()
		state = domain.With(state, domain.KeyElectionID, id)
	}
	if _, ok := domain.Get(state, domain.KeyTieBreak); !ok && p.tieBreak != nil {
		state = domain.With(state, domain.KeyTieBreak, *p.tieBreak)
	}

	logger := p.logger.With("election_id", id)
	logger.DebugContext(ctx, "election started", "rules", len(p.rules))
	start := time.Now()

	outcomes := make([]domain.Outcome, len(p.rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, rule := range p.rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			next, err := rule.Execute(gctx, state)
			if err != nil {
				logger.WarnContext(gctx, "rule failed", "rule", rule.Name(), "error", err)
				return err
			}
			outcome, ok := domain.Get(next, domain.KeyOutcome)
			if !ok {
				return fmt.Errorf("rule %s produced no outcome", rule.Name())
			}
			outcomes[i] = outcome
			logger.DebugContext(gctx, "rule decided",
				"rule", rule.Name(),
				"winner", p.label(outcome.Winner),
				"tie_broken", outcome.TieBroken,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "election failed", "error", err)
		return state, fmt.Errorf("panel %s: %w", p.name, err)
	}

	results := make(map[string]domain.Outcome, len(p.rules))
	for i, rule := range p.rules {
		results[rule.Name()] = outcomes[i]
	}

	logger.InfoContext(ctx, "election completed",
		"rules", len(p.rules),
		"duration", time.Since(start),
	)
	return domain.With(state, domain.KeyOutcomes, results), nil
}

// Elect is a convenience wrapper around Run for a profile and optional
// valuation table.
func (p *Panel) Elect(ctx context.Context, profile *domain.Profile, valuations domain.ValuationTable) (map[string]domain.Outcome, error) {
	state := domain.NewState()
	if profile != nil {
		state = domain.With(state, domain.KeyProfile, profile)
	}
	if valuations != nil {
		state = domain.With(state, domain.KeyValuations, valuations)
	}

	out, err := p.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	results, _ := domain.Get(out, domain.KeyOutcomes)
	return results, nil
}

// ElectBallots parses one "a > b > c" ballot per agent through the panel's
// catalog and runs the election. Agents are numbered from 1 in ballot
// order.
func (p *Panel) ElectBallots(ctx context.Context, ballotLines []string, valuations domain.ValuationTable) (map[string]domain.Outcome, error) {
	if p.catalog == nil {
		return nil, fmt.Errorf("panel %s: %w", p.name, ErrNoCatalog)
	}
	profile, err := p.catalog.ParseProfile(ballotLines)
	if err != nil {
		return nil, fmt.Errorf("panel %s: %w", p.name, err)
	}
	return p.Elect(ctx, profile, valuations)
}

// WinnerLabels maps each rule id to the label of its winner. Without a
// catalog winners are rendered as their numbers.
func (p *Panel) WinnerLabels(outcomes map[string]domain.Outcome) map[string]string {
	labels := make(map[string]string, len(outcomes))
	for id, outcome := range outcomes {
		labels[id] = p.label(outcome.Winner)
	}
	return labels
}

func (p *Panel) label(alt domain.Alternative) string {
	if p.catalog == nil {
		return strconv.Itoa(int(alt))
	}
	return p.catalog.Label(alt)
}
