package ports

import (
	"errors"
	"fmt"
)

// Common errors raised while wiring rules from configuration.
var (
	// ErrUnsupportedRuleType indicates that no factory is registered for
	// a rule type.
	ErrUnsupportedRuleType = errors.New("unsupported rule type")

	// ErrMissingInput indicates that the election State lacks an input the
	// rule needs, such as the profile or the valuation table.
	ErrMissingInput = errors.New("missing election input")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
