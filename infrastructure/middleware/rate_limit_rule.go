package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

var _ ports.Rule = (*RateLimitedRule)(nil)

// RateLimitedRule paces rule executions with a token bucket. Rules that
// share a limiter share its budget.
type RateLimitedRule struct {
	next    ports.Rule
	limiter *rate.Limiter
}

// WithRateLimit wraps rule so that every execution first waits for a token
// from limiter.
func WithRateLimit(rule ports.Rule, limiter *rate.Limiter) *RateLimitedRule {
	if rule == nil {
		panic("rate limit middleware: rule is required")
	}
	if limiter == nil {
		panic("rate limit middleware: limiter is required")
	}
	return &RateLimitedRule{next: rule, limiter: limiter}
}

// Name returns the wrapped rule's name.
func (r *RateLimitedRule) Name() string { return r.next.Name() }

// Validate delegates to the wrapped rule.
func (r *RateLimitedRule) Validate() error { return r.next.Validate() }

// Unwrap returns the wrapped rule.
func (r *RateLimitedRule) Unwrap() ports.Rule { return r.next }

// Execute blocks until the limiter admits the call or ctx is done.
func (r *RateLimitedRule) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return state, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Execute(ctx, state)
}
