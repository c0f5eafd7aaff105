package rules

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.Rule = (*DictatorshipRule)(nil)

// DictatorshipRule elects the designated agent's first choice.
type DictatorshipRule struct {
	name   string
	config DictatorshipConfig
	tracer trace.Tracer
}

// DictatorshipConfig defines the configuration parameters for a DictatorshipRule.
type DictatorshipConfig struct {
	// Agent is the dictator. Agent identifiers are non-zero.
	Agent int `yaml:"agent" json:"agent" validate:"required"`
}

// NewDictatorshipRule creates a DictatorshipRule with a validated configuration.
func NewDictatorshipRule(name string, config DictatorshipConfig) (*DictatorshipRule, error) {
	if name == "" {
		return nil, ErrEmptyRuleName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &DictatorshipRule{
		name:   name,
		config: config,
		tracer: defaultTracer(),
	}, nil
}

// Name returns the unique identifier for this rule instance.
func (r *DictatorshipRule) Name() string { return r.name }

// Execute elects the dictator's top choice from the profile in the state.
func (r *DictatorshipRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return execute(ctx, r.tracer, domain.RuleDictatorship, r.name, state, func(s domain.State) (domain.Outcome, error) {
		p, err := profileFrom(s)
		if err != nil {
			return domain.Outcome{}, err
		}
		return domain.DictatorshipOutcome(p, domain.Agent(r.config.Agent))
	})
}

// Validate checks if the rule is properly configured.
func (r *DictatorshipRule) Validate() error {
	if err := validate.Struct(r.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters decodes YAML parameters into the rule's configuration.
func (r *DictatorshipRule) UnmarshalParameters(params yaml.Node) error {
	var config DictatorshipConfig
	if err := decodeParams(params, &config); err != nil {
		return err
	}
	r.config = config
	return nil
}

// CreateDictatorshipRule is a factory that builds a DictatorshipRule from
// a parameter map. The agent parameter is required.
func CreateDictatorshipRule(id string, params map[string]any) (*DictatorshipRule, error) {
	var config DictatorshipConfig
	switch v := params["agent"].(type) {
	case int:
		config.Agent = v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: agent must be a whole number, got %v", ErrInvalidParameter, v)
		}
		config.Agent = int(v)
	case nil:
	default:
		return nil, fmt.Errorf("%w: agent must be an integer, got %T", ErrInvalidParameter, v)
	}
	return NewDictatorshipRule(id, config)
}
