// Package rules provides configurable voting-rule units that implement
// ports.Rule over an election State.
package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// tracerName is the instrumentation scope of every rule span.
const tracerName = "github.com/ahrav/go-ballot/infrastructure/rules"

// Common errors returned by rule units.
var (
	// ErrEmptyRuleName is returned when a rule is created without an id.
	ErrEmptyRuleName = errors.New("rule name cannot be empty")

	// ErrInvalidParameter is returned when a factory parameter has the
	// wrong type.
	ErrInvalidParameter = errors.New("invalid rule parameter")
)

// Package-level validator instance for configuration validation, with the
// "tiebreak" tag registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterTieBreakValidation(v); err != nil {
		panic(fmt.Sprintf("register tiebreak validation: %v", err))
	}
	return v
}

// RegisterTieBreakValidation adds the "tiebreak" struct tag to v. The tag
// accepts an empty string or anything domain.ParseTieBreak accepts.
func RegisterTieBreakValidation(v *validator.Validate) error {
	return v.RegisterValidation("tiebreak", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := domain.ParseTieBreak(s)
		return err == nil
	})
}

// resolveTieBreak picks the configured mode, then the state's default,
// then select-maximum.
func resolveTieBreak(configured string, state domain.State) (domain.TieBreak, error) {
	if configured != "" {
		return domain.ParseTieBreak(configured)
	}
	if tb, ok := domain.Get(state, domain.KeyTieBreak); ok {
		return tb, nil
	}
	return domain.TieBreakMax(), nil
}

func profileFrom(state domain.State) (*domain.Profile, error) {
	p, ok := domain.Get(state, domain.KeyProfile)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrMissingInput, domain.KeyProfile.Name())
	}
	return p, nil
}

// decodeParams decodes a YAML parameter node into cfg and validates it.
func decodeParams(params yaml.Node, cfg any) error {
	if err := params.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	return nil
}

// execute runs elect inside a span named after the rule type and stores
// the resulting outcome in the returned state.
func execute(
	ctx context.Context,
	tracer trace.Tracer,
	ruleType string,
	name string,
	state domain.State,
	elect func(domain.State) (domain.Outcome, error),
) (domain.State, error) {
	_, span := tracer.Start(ctx, "Rule.Execute",
		trace.WithAttributes(
			attribute.String("rule.type", ruleType),
			attribute.String("rule.id", name),
		),
	)
	defer span.End()

	outcome, err := elect(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, fmt.Errorf("rule %s: %w", name, err)
	}

	span.SetAttributes(
		attribute.Int("outcome.winner", int(outcome.Winner)),
		attribute.Bool("outcome.tie_broken", outcome.TieBroken),
		attribute.Int("outcome.rounds", len(outcome.Rounds)),
	)
	return domain.With(state, domain.KeyOutcome, outcome), nil
}

func defaultTracer() trace.Tracer { return otel.Tracer(tracerName) }

// stringParam reads an optional string parameter from a factory map.
func stringParam(params map[string]any, key string) (string, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	switch v := raw.(type) {
	case string:
		return v, true, nil
	case int:
		// A bare agent number is a valid tie-break.
		return fmt.Sprint(v), true, nil
	default:
		return "", false, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParameter, key, raw)
	}
}

// floatsParam reads a numeric list parameter from a factory map.
func floatsParam(params map[string]any, key string) ([]float64, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []float64:
		return v, true, nil
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			switch n := item.(type) {
			case float64:
				out[i] = n
			case int:
				out[i] = float64(n)
			default:
				return nil, false, fmt.Errorf("%w: %s[%d] must be a number, got %T", ErrInvalidParameter, key, i, item)
			}
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %s must be a list of numbers, got %T", ErrInvalidParameter, key, raw)
	}
}
