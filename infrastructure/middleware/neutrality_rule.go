package middleware

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// ErrNeutralityViolation is returned when renaming the alternatives changes
// which alternative a rule elects.
var ErrNeutralityViolation = errors.New("neutrality violation")

var _ ports.Rule = (*NeutralityRule)(nil)

// NeutralityRule guards against label bias by executing a rule twice: once
// on the election as given and once with the alternatives renamed in
// reverse order. Untied outcomes must name the same alternative once the
// second winner is mapped back. Outcomes decided by a tie-break are not
// compared since max and min depend on the labels themselves.
//
// The first execution's state is returned unchanged.
type NeutralityRule struct {
	next ports.Rule
}

// WithNeutralityCheck wraps rule in a NeutralityRule.
func WithNeutralityCheck(rule ports.Rule) *NeutralityRule {
	if rule == nil {
		panic("neutrality middleware: rule is required")
	}
	return &NeutralityRule{next: rule}
}

// Name returns the wrapped rule's name.
func (n *NeutralityRule) Name() string { return n.next.Name() }

// Validate delegates to the wrapped rule.
func (n *NeutralityRule) Validate() error { return n.next.Validate() }

// Unwrap returns the wrapped rule.
func (n *NeutralityRule) Unwrap() ports.Rule { return n.next }

// Execute runs the rule on the original and the relabeled election and
// compares the winners.
func (n *NeutralityRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "NeutralityRule.Execute",
		trace.WithAttributes(attribute.String("rule.id", n.next.Name())))
	defer span.End()

	first, err := n.next.Execute(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	swapped, perm, err := relabelElection(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, fmt.Errorf("relabel election: %w", err)
	}
	if len(perm) < 2 {
		span.SetAttributes(attribute.Bool("neutrality.checked", false))
		return first, nil
	}

	second, err := n.next.Execute(ctx, swapped)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, fmt.Errorf("relabeled execution failed: %w", err)
	}

	original, ok1 := domain.Get(first, domain.KeyOutcome)
	relabeled, ok2 := domain.Get(second, domain.KeyOutcome)
	if !ok1 || !ok2 {
		err := fmt.Errorf("rule %s produced no outcome", n.next.Name())
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	if original.TieBroken || relabeled.TieBroken {
		span.SetAttributes(attribute.Bool("neutrality.checked", false))
		span.SetStatus(codes.Ok, "")
		return first, nil
	}

	span.SetAttributes(attribute.Bool("neutrality.checked", true))
	// The reversal is its own inverse.
	if mapped := perm[relabeled.Winner]; mapped != original.Winner {
		err := fmt.Errorf("%w: rule %s elected %d, but %d after relabeling",
			ErrNeutralityViolation, n.next.Name(), original.Winner, mapped)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	span.SetStatus(codes.Ok, "")
	return first, nil
}

// relabelElection reverses the alternative labels of the profile and the
// valuation table in state, whichever are present.
func relabelElection(state domain.State) (domain.State, map[domain.Alternative]domain.Alternative, error) {
	profile, hasProfile := domain.Get(state, domain.KeyProfile)
	valuations, hasValuations := domain.Get(state, domain.KeyValuations)

	hasProfile = hasProfile && profile != nil
	hasValuations = hasValuations && len(valuations) > 0
	if hasProfile && hasValuations &&
		!slices.Equal(profile.Alternatives(), slices.Sorted(maps.Keys(valuations))) {
		// No single renaming covers both inputs.
		return state, nil, nil
	}

	var perm map[domain.Alternative]domain.Alternative
	switch {
	case hasProfile:
		perm = profile.Reversal()
	case hasValuations:
		alts := slices.Sorted(maps.Keys(valuations))
		perm = make(map[domain.Alternative]domain.Alternative, len(alts))
		for i, alt := range alts {
			perm[alt] = alts[len(alts)-1-i]
		}
	default:
		return state, nil, nil
	}

	if hasProfile {
		relabeled, err := profile.Relabel(perm)
		if err != nil {
			return state, nil, err
		}
		state = domain.With(state, domain.KeyProfile, relabeled)
	}
	if hasValuations {
		relabeled, err := valuations.Relabel(perm)
		if err != nil {
			return state, nil, err
		}
		state = domain.With(state, domain.KeyValuations, relabeled)
	}
	return state, perm, nil
}
