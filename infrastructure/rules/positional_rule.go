package rules

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.Rule = (*PositionalRule)(nil)

// Method selects the score vector a PositionalRule applies.
type Method string

// Supported positional methods.
const (
	MethodScoring   Method = domain.RuleScoring
	MethodPlurality Method = domain.RulePlurality
	MethodVeto      Method = domain.RuleVeto
	MethodBorda     Method = domain.RuleBorda
	MethodHarmonic  Method = domain.RuleHarmonic
)

// PositionalRule applies a positional scoring method to the profile in
// the state. Plurality, Veto, Borda and Harmonic derive their score vector
// from the number of alternatives; the scoring method uses the configured
// vector as is.
type PositionalRule struct {
	name   string
	config PositionalConfig
	tracer trace.Tracer
}

// PositionalConfig defines the configuration parameters for a PositionalRule.
type PositionalConfig struct {
	// Method is one of scoring, plurality, veto, borda or harmonic.
	Method Method `yaml:"method" json:"method" validate:"required,oneof=scoring plurality veto borda harmonic"`

	// ScoreVector holds one non-negative weight per rank position and is
	// required by the scoring method only.
	ScoreVector []float64 `yaml:"score_vector" json:"score_vector" validate:"required_if=Method scoring,omitempty,dive,min=0"`

	// TieBreak is "max", "min" or "agent:<i>". Empty defers to the
	// election's default.
	TieBreak string `yaml:"tie_break" json:"tie_break" validate:"omitempty,tiebreak"`
}

// NewPositionalRule creates a PositionalRule with a validated configuration.
func NewPositionalRule(name string, config PositionalConfig) (*PositionalRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &PositionalRule{
		name:   name,
		config: config,
		tracer: defaultTracer(),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *PositionalRule) Name() string { return r.name }

// Method returns the configured positional method.
func (r *PositionalRule) Method() Method { return r.config.Method }

// Execute scores the profile in the state and stores the outcome.
func (r *PositionalRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return execute(ctx, r.tracer, string(r.config.Method), r.name, state, func(s domain.State) (domain.Outcome, error) {
		p, err := profileFrom(s)
		if err != nil {
			return domain.Outcome{}, err
		}
		tb, err := resolveTieBreak(r.config.TieBreak, s)
		if err != nil {
			return domain.Outcome{}, err
		}
		return r.Elect(p, tb)
	})
}

// Elect applies the configured method directly to a profile.
func (r *PositionalRule) Elect(p *domain.Profile, tb domain.TieBreak) (domain.Outcome, error) {
	switch r.config.Method {
	case MethodScoring:
		return domain.ScoringRule(p, r.config.ScoreVector, tb)
	case MethodPlurality:
		return domain.Plurality(p, tb)
	case MethodVeto:
		return domain.Veto(p, tb)
	case MethodBorda:
		return domain.Borda(p, tb)
	case MethodHarmonic:
		return domain.Harmonic(p, tb)
	default:
		return domain.Outcome{}, fmt.Errorf("unknown positional method: %s", r.config.Method)
	}
}

// Validate checks if the rule is properly configured.
func (r *PositionalRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters decodes YAML parameters into the rule's
// configuration. The method is kept when the parameters omit it.
func (r *PositionalRule) UnmarshalParameters(params yaml.Node) error {
	config := PositionalConfig{Method: r.config.Method}
	if err := decodeParams(params, &config); err != nil {
		return err
	}
	r.config = config
	return nil
}

// DefaultPositionalConfig returns a Borda configuration that defers
// tie-breaking to the election default.
func DefaultPositionalConfig() PositionalConfig {
	return PositionalConfig{Method: MethodBorda}
}

// CreatePositionalRule is a factory that builds a PositionalRule from a
// parameter map. The method parameter overrides the default method.
func CreatePositionalRule(id string, params map[string]any) (*PositionalRule, error) {
	config := DefaultPositionalConfig()

	method, ok, err := stringParam(params, "method")
	if err != nil {
		return nil, err
	}
	if ok {
		config.Method = Method(method)
	}

	vector, ok, err := floatsParam(params, "score_vector")
	if err != nil {
		return nil, err
	}
	if ok {
		config.ScoreVector = vector
	}

	tieBreak, ok, err := stringParam(params, "tie_break")
	if err != nil {
		return nil, err
	}
	if ok {
		config.TieBreak = tieBreak
	}

	return NewPositionalRule(id, config)
}

// MethodFactory returns a factory for one fixed positional method, for
// registries that expose each method as its own rule type.
func MethodFactory(method Method) func(id string, params map[string]any) (*PositionalRule, error) {
	return func(id string, params map[string]any) (*PositionalRule, error) {
		withMethod := make(map[string]any, len(params)+1)
		for k, v := range params {
			withMethod[k] = v
		}
		withMethod["method"] = string(method)
		return CreatePositionalRule(id, withMethod)
	}
}
