package application

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/infrastructure/rules"
	"github.com/ahrav/go-ballot/internal/domain"
)

// Rule types registered by DefaultRuleRegistry.
const (
	RuleTypeDictatorship = "dictatorship"
	RuleTypeScoring      = "scoring"
	RuleTypePlurality    = "plurality"
	RuleTypeVeto         = "veto"
	RuleTypeBorda        = "borda"
	RuleTypeHarmonic     = "harmonic"
	RuleTypeSTV          = "stv"
	RuleTypeRange        = "range"
)

// ValidateRuleParameters validates the parameters for a rule type before
// any rule is built. Types without a dedicated check are left to their
// factories.
func ValidateRuleParameters(ruleType string, params yaml.Node) error {
	paramMap, err := decodeParameters(params)
	if err != nil {
		return err
	}

	switch ruleType {
	case RuleTypeDictatorship:
		return validateDictatorshipParams(paramMap)
	case RuleTypeScoring:
		if err := validateScoreVectorParam(paramMap); err != nil {
			return err
		}
		return validateTieBreakParam(paramMap)
	case RuleTypePlurality, RuleTypeVeto, RuleTypeBorda, RuleTypeHarmonic, RuleTypeSTV, RuleTypeRange:
		return validateTieBreakParam(paramMap)
	default:
		return nil
	}
}

// decodeParameters converts a parameter node into a map. An absent or
// null node yields an empty map.
func decodeParameters(params yaml.Node) (map[string]any, error) {
	paramMap := make(map[string]any)
	if params.Kind == 0 {
		return paramMap, nil
	}
	if err := params.Decode(&paramMap); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	if paramMap == nil {
		paramMap = make(map[string]any)
	}
	return paramMap, nil
}

// validateDictatorshipParams requires a positive integer agent.
func validateDictatorshipParams(params map[string]any) error {
	agent, ok := params["agent"]
	if !ok {
		return fmt.Errorf("dictatorship requires 'agent' parameter")
	}
	n, ok := agent.(int)
	if !ok {
		return fmt.Errorf("agent must be an integer")
	}
	if n < 1 {
		return fmt.Errorf("agent must be at least 1")
	}
	return nil
}

// validateScoreVectorParam requires a non-empty list of non-negative
// numbers. Its length is checked against the profile at run time.
func validateScoreVectorParam(params map[string]any) error {
	raw, ok := params["score_vector"]
	if !ok {
		return fmt.Errorf("scoring requires 'score_vector' parameter")
	}
	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("score_vector must be a list of numbers")
	}
	if len(list) == 0 {
		return fmt.Errorf("score_vector cannot be empty")
	}
	for i, item := range list {
		var w float64
		switch v := item.(type) {
		case int:
			w = float64(v)
		case float64:
			w = v
		default:
			return fmt.Errorf("score_vector[%d] must be a number", i)
		}
		if w < 0 {
			return fmt.Errorf("score_vector[%d] must be non-negative", i)
		}
	}
	return nil
}

// validateTieBreakParam checks the optional tie_break parameter.
func validateTieBreakParam(params map[string]any) error {
	raw, ok := params["tie_break"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		if _, err := domain.ParseTieBreak(v); err != nil {
			return err
		}
	case int:
		// A bare agent number follows the same rule as "agent:<i>".
		if _, err := domain.ParseTieBreak(strconv.Itoa(v)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("tie_break must be a string or an agent number")
	}
	return nil
}

// RegisterElectionValidators registers the custom struct tags used by
// ElectionConfig: "semver" and "tiebreak".
func RegisterElectionValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := rules.RegisterTieBreakValidation(v); err != nil {
		return fmt.Errorf("failed to register tiebreak validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}
