package rules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.Rule = (*RangeRule)(nil)

// RangeRule sums the valuation table in the state. A profile in the state
// is used for agent tie-breaks when present; otherwise the preferences
// implied by the valuations are used.
type RangeRule struct {
	name   string
	config TieBreakConfig
	tracer trace.Tracer
}

// NewRangeRule creates a RangeRule with a validated configuration.
func NewRangeRule(name string, config TieBreakConfig) (*RangeRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &RangeRule{
		name:   name,
		config: config,
		tracer: defaultTracer(),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *RangeRule) Name() string { return r.name }

// Execute sums the valuations and stores the outcome.
func (r *RangeRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return execute(ctx, r.tracer, domain.RuleRange, r.name, state, func(s domain.State) (domain.Outcome, error) {
		table, ok := domain.Get(s, domain.KeyValuations)
		if !ok {
			return domain.Outcome{}, fmt.Errorf("%w: %s", ports.ErrMissingInput, domain.KeyValuations.Name())
		}
		tb, err := resolveTieBreak(r.config.TieBreak, s)
		if err != nil {
			return domain.Outcome{}, err
		}
		// Optional: only agent tie-breaks look at it.
		p, _ := domain.Get(s, domain.KeyProfile)
		return domain.RangeVoting(table, tb, p)
	})
}

// Validate checks if the rule is properly configured.
func (r *RangeRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters decodes YAML parameters into the rule's configuration.
func (r *RangeRule) UnmarshalParameters(params yaml.Node) error {
	var config TieBreakConfig
	if err := decodeParams(params, &config); err != nil {
		return err
	}
	r.config = config
	return nil
}

// CreateRangeRule is a factory that builds a RangeRule from a parameter map.
func CreateRangeRule(id string, params map[string]any) (*RangeRule, error) {
	config, err := tieBreakConfigFrom(params)
	if err != nil {
		return nil, err
	}
	return NewRangeRule(id, config)
}
