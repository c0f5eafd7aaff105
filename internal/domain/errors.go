package domain

import (
	"errors"
	"fmt"
)

// Errors returned by the voting rules. Callers should match them with
// errors.Is since rules wrap them with additional context.
var (
	// ErrInvalidProfile indicates rankings that are empty, contain
	// duplicates or omissions, or range over different alternative sets.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrScoreVectorLengthMismatch indicates a score vector whose length
	// differs from the number of alternatives in the profile.
	ErrScoreVectorLengthMismatch = errors.New("score vector length mismatch")

	// ErrInvalidScoreVector indicates a score vector with negative, NaN or
	// infinite entries.
	ErrInvalidScoreVector = errors.New("invalid score vector")

	// ErrUnknownAgent indicates an agent identifier that is not part of the profile.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrInvalidTieBreakMode indicates an unknown tie-break mode or a
	// defer-to-agent mode naming an agent the profile does not contain.
	ErrInvalidTieBreakMode = errors.New("invalid tie-break mode")

	// ErrEmptyCandidateSet indicates the tie-breaker was given no candidates.
	ErrEmptyCandidateSet = errors.New("empty candidate set")

	// ErrEmptyValuationTable indicates a range vote over a table with no entries.
	ErrEmptyValuationTable = errors.New("empty valuation table")
)

// RuleError represents a failure while a voting rule was being applied.
// It records which rule and which step failed.
type RuleError struct {
	// Rule is the name of the voting rule, e.g. "borda".
	Rule string

	// Operation describes the step that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for RuleError.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule error: rule=%s, operation=%s, err=%v", e.Rule, e.Operation, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *RuleError) Unwrap() error { return e.Err }

// NewRuleError creates a new RuleError with the given details.
func NewRuleError(rule, operation string, err error) *RuleError {
	return &RuleError{
		Rule:      rule,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError collects every defect found while validating an entity
// so callers see all problems at once. It unwraps to Kind.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Kind is the sentinel this validation failure classifies as.
	Kind error

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns the sentinel kind of this validation failure.
func (e *ValidationError) Unwrap() error { return e.Kind }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.AddError(fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string, kind error) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Kind:   kind,
		Errors: make([]string, 0),
	}
}
