package application

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/go-ballot/infrastructure/rules"
	"github.com/ahrav/go-ballot/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.RuleRegistry = (*DefaultRuleRegistry)(nil)

// DefaultRuleRegistry implements the RuleRegistry interface, mapping rule
// types to the factories that build them. It is safe for concurrent use.
type DefaultRuleRegistry struct {
	// factories maps rule type strings to their factory functions.
	factories map[string]ports.RuleFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultRuleRegistry creates a registry with every built-in rule type
// registered.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	registry := &DefaultRuleRegistry{
		factories: make(map[string]ports.RuleFactory),
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers dictatorship, the positional scoring
// family, STV and range voting.
func (r *DefaultRuleRegistry) registerBuiltinFactories() {
	r.factories[RuleTypeDictatorship] = func(id string, params map[string]any) (ports.Rule, error) {
		rule, err := rules.CreateDictatorshipRule(id, params)
		if err != nil {
			return nil, err
		}
		return rule, nil
	}

	positional := map[string]rules.Method{
		RuleTypeScoring:   rules.MethodScoring,
		RuleTypePlurality: rules.MethodPlurality,
		RuleTypeVeto:      rules.MethodVeto,
		RuleTypeBorda:     rules.MethodBorda,
		RuleTypeHarmonic:  rules.MethodHarmonic,
	}
	for ruleType, method := range positional {
		create := rules.MethodFactory(method)
		r.factories[ruleType] = func(id string, params map[string]any) (ports.Rule, error) {
			rule, err := create(id, params)
			if err != nil {
				return nil, err
			}
			return rule, nil
		}
	}

	r.factories[RuleTypeSTV] = func(id string, params map[string]any) (ports.Rule, error) {
		rule, err := rules.CreateSTVRule(id, params)
		if err != nil {
			return nil, err
		}
		return rule, nil
	}
	r.factories[RuleTypeRange] = func(id string, params map[string]any) (ports.Rule, error) {
		rule, err := rules.CreateRangeRule(id, params)
		if err != nil {
			return nil, err
		}
		return rule, nil
	}
}

// CreateRule creates a rule instance of the given type.
func (r *DefaultRuleRegistry) CreateRule(
	ruleType string,
	id string,
	params map[string]any,
) (ports.Rule, error) {
	r.mu.RLock()
	factory, exists := r.factories[ruleType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedRuleType, ruleType)
	}

	if id == "" {
		return nil, fmt.Errorf("rule ID cannot be empty")
	}

	if params == nil {
		params = make(map[string]any)
	}

	rule, err := factory(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule %s of type %s: %w", id, ruleType, err)
	}

	return rule, nil
}

// RegisterRuleFactory registers a factory for a rule type, replacing any
// existing one. This allows extending the registry with custom rules.
func (r *DefaultRuleRegistry) RegisterRuleFactory(
	ruleType string,
	factory ports.RuleFactory,
) error {
	if ruleType == "" {
		return fmt.Errorf("rule type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[ruleType] = factory
	return nil
}

// SupportedTypes returns the registered rule types in sorted order.
func (r *DefaultRuleRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.factories))
}

// Supports reports whether a factory is registered for ruleType.
func (r *DefaultRuleRegistry) Supports(ruleType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[ruleType]
	return ok
}
