package application

import (
	"gopkg.in/yaml.v3"
)

// ElectionConfig is the YAML document describing a panel of voting rules
// that run over the same election.
type ElectionConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the election panel.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// TieBreak is the default tie-break mode for every rule that does not
	// configure its own: "max", "min" or "agent:<i>".
	TieBreak string `yaml:"tie_break,omitempty" validate:"omitempty,tiebreak"`
	// Alternatives optionally names the alternatives 1..m in order. When
	// present the panel accepts ballots written as "a > b > c" and can
	// report winners by label.
	Alternatives []string `yaml:"alternatives,omitempty" validate:"omitempty,dive,required,max=100"`
	// Rules lists the voting rules to run. Each rule sees the same input.
	Rules []RuleConfig `yaml:"rules" validate:"required,min=1,dive"`
}

// Metadata provides descriptive information about an election panel.
type Metadata struct {
	// Name is the human-readable identifier of the panel.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains what the panel is for.
	Description string `yaml:"description,omitempty" validate:"max=1000"`
	// Tags are categorical labels for filtering and grouping.
	Tags []string `yaml:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
}

// RuleConfig defines one configured voting rule.
type RuleConfig struct {
	// ID is the unique identifier for this rule within the panel. Outcomes
	// are reported under this id.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the rule implementation from the registry, e.g. "borda"
	// or "stv".
	Type string `yaml:"type" validate:"required,min=1,max=50"`
	// Parameters contains type-specific configuration, validated according
	// to the rule type.
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}
