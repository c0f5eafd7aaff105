// Package ports defines the contracts between the application layer and
// the infrastructure that implements voting rules and observability.
package ports

import (
	"context"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Rule is a configured voting rule that can run over an election State.
// Rules read their inputs (profile, valuations, default tie-break) from
// the state and write a domain.Outcome under domain.KeyOutcome.
// Rules must be stateless and safe for concurrent use.
type Rule interface {
	// Name returns the unique identifier of this configured rule.
	Name() string

	// Execute applies the rule and returns a new State carrying the
	// outcome. The input State must not be modified.
	//
	// Example:
	//
	//	next, err := rule.Execute(ctx, state)
	//	if err != nil {
	//	    return fmt.Errorf("rule %s failed: %w", rule.Name(), err)
	//	}
	//	outcome, _ := domain.Get(next, domain.KeyOutcome)
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks that the rule is fully configured.
	Validate() error
}

// RuleFactory builds a Rule of one type from an id and a loosely typed
// parameter map (as decoded from YAML).
type RuleFactory func(id string, params map[string]any) (Rule, error)

// RuleRegistry resolves rule types to factories.
type RuleRegistry interface {
	// CreateRule builds a rule of the given type.
	CreateRule(ruleType, id string, params map[string]any) (Rule, error)

	// RegisterRuleFactory adds or replaces the factory for a rule type.
	RegisterRuleFactory(ruleType string, factory RuleFactory) error

	// SupportedTypes lists the registered rule types in sorted order.
	SupportedTypes() []string
}
