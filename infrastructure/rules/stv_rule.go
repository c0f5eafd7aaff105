package rules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.Rule = (*STVRule)(nil)

// STVRule runs single transferable vote elimination over the profile in
// the state. The outcome carries the full round log.
type STVRule struct {
	name   string
	config TieBreakConfig
	tracer trace.Tracer
}

// TieBreakConfig is the configuration shared by rules whose only
// parameter is the tie-break mode.
type TieBreakConfig struct {
	// TieBreak is "max", "min" or "agent:<i>". Empty defers to the
	// election's default.
	TieBreak string `yaml:"tie_break" json:"tie_break" validate:"omitempty,tiebreak"`
}

// NewSTVRule creates an STVRule with a validated configuration.
func NewSTVRule(name string, config TieBreakConfig) (*STVRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &STVRule{
		name:   name,
		config: config,
		tracer: defaultTracer(),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *STVRule) Name() string { return r.name }

// Execute runs the elimination rounds and stores the outcome.
func (r *STVRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return execute(ctx, r.tracer, domain.RuleSTV, r.name, state, func(s domain.State) (domain.Outcome, error) {
		p, err := profileFrom(s)
		if err != nil {
			return domain.Outcome{}, err
		}
		tb, err := resolveTieBreak(r.config.TieBreak, s)
		if err != nil {
			return domain.Outcome{}, err
		}
		return domain.STV(p, tb)
	})
}

// Validate checks if the rule is properly configured.
func (r *STVRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters decodes YAML parameters into the rule's configuration.
func (r *STVRule) UnmarshalParameters(params yaml.Node) error {
	var config TieBreakConfig
	if err := decodeParams(params, &config); err != nil {
		return err
	}
	r.config = config
	return nil
}

// CreateSTVRule is a factory that builds an STVRule from a parameter map.
func CreateSTVRule(id string, params map[string]any) (*STVRule, error) {
	config, err := tieBreakConfigFrom(params)
	if err != nil {
		return nil, err
	}
	return NewSTVRule(id, config)
}

func tieBreakConfigFrom(params map[string]any) (TieBreakConfig, error) {
	var config TieBreakConfig
	tieBreak, ok, err := stringParam(params, "tie_break")
	if err != nil {
		return config, err
	}
	if ok {
		config.TieBreak = tieBreak
	}
	return config, nil
}
