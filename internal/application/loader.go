package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/infrastructure/ballots"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// ConfigLoader parses, validates and caches election configurations,
// turning YAML documents into runnable panels.
type ConfigLoader struct {
	// validator performs struct validation with the semver and tiebreak
	// tags registered.
	validator *validator.Validate
	// registry builds rules from their type and parameters.
	registry ports.RuleRegistry
	// opts are applied to every panel the loader builds.
	opts []PanelOption
	// cache stores built panels indexed by SHA256 hash of the normalized
	// configuration. Panels are immutable, so sharing them is safe.
	cache   map[string]*Panel
	cacheMu sync.RWMutex
	// sf prevents duplicate builds when several goroutines load the same
	// configuration simultaneously.
	sf singleflight.Group
}

// NewConfigLoader creates a loader that builds rules from registry and
// applies opts to every panel. It returns an error if validator
// registration fails.
func NewConfigLoader(registry ports.RuleRegistry, opts ...PanelOption) (*ConfigLoader, error) {
	if registry == nil {
		return nil, fmt.Errorf("rule registry is required")
	}

	v := validator.New()
	if err := RegisterElectionValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &ConfigLoader{
		validator: v,
		registry:  registry,
		opts:      opts,
		cache:     make(map[string]*Panel),
	}, nil
}

// Load builds a panel from YAML bytes. Identical configurations share one
// cached panel.
func (cl *ConfigLoader) Load(ctx context.Context, data []byte) (*Panel, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Hash the normalized config, not the raw bytes.
	hash, err := cl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if panel, ok := cl.getCachedPanel(hash); ok {
			return panel, nil
		}

		if err := cl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		panel, err := cl.buildPanel(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build panel: %w", err)
		}

		cl.cachePanel(hash, panel)
		return panel, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Panel), nil
}

// LoadFromFile builds a panel from a YAML file.
func (cl *ConfigLoader) LoadFromFile(ctx context.Context, path string) (*Panel, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ports.NewConfigError(path, fmt.Errorf("failed to read file: %w", err))
	}
	return cl.Load(ctx, data)
}

// LoadFromReader builds a panel from any reader.
func (cl *ConfigLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Panel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.Load(ctx, data)
}

// ParseConfig decodes and validates a configuration without building it.
func (cl *ConfigLoader) ParseConfig(data []byte) (*ElectionConfig, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cl.validateConfig(config); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return config, nil
}

// parseYAML decodes strictly, so unknown fields are rejected rather than
// silently ignored.
func (cl *ConfigLoader) parseYAML(data []byte) (*ElectionConfig, error) {
	var config ElectionConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig runs struct validation followed by semantic checks.
func (cl *ConfigLoader) validateConfig(config *ElectionConfig) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	if err := cl.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

// validateSemantics checks what struct tags cannot: distinct alternative
// labels, unique rule ids, registered rule types and per-type parameters.
func (cl *ConfigLoader) validateSemantics(config *ElectionConfig) error {
	if len(config.Alternatives) > 0 {
		if _, err := ballots.NewCatalog(config.Alternatives...); err != nil {
			return fmt.Errorf("alternatives: %w", err)
		}
	}

	supported := make(map[string]struct{})
	for _, t := range cl.registry.SupportedTypes() {
		supported[t] = struct{}{}
	}

	ids := make(map[string]struct{}, len(config.Rules))
	for _, rule := range config.Rules {
		if _, exists := ids[rule.ID]; exists {
			return fmt.Errorf("duplicate rule ID %q", rule.ID)
		}
		ids[rule.ID] = struct{}{}

		if _, ok := supported[rule.Type]; !ok {
			return fmt.Errorf("rule %s: %w: %s", rule.ID, ports.ErrUnsupportedRuleType, rule.Type)
		}

		if err := ValidateRuleParameters(rule.Type, rule.Parameters); err != nil {
			return fmt.Errorf("rule %s parameter validation failed: %w", rule.ID, err)
		}
	}
	return nil
}

// buildPanel creates every rule through the registry and assembles the
// panel with the loader's options plus the configured default tie-break
// and alternative labels.
func (cl *ConfigLoader) buildPanel(ctx context.Context, config *ElectionConfig) (*Panel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	built := make([]ports.Rule, 0, len(config.Rules))
	for _, rc := range config.Rules {
		params, err := decodeParameters(rc.Parameters)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rc.ID, err)
		}
		rule, err := cl.registry.CreateRule(rc.Type, rc.ID, params)
		if err != nil {
			return nil, err
		}
		built = append(built, rule)
	}

	opts := append([]PanelOption(nil), cl.opts...)
	if config.TieBreak != "" {
		tb, err := domain.ParseTieBreak(config.TieBreak)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDefaultTieBreak(tb))
	}
	if len(config.Alternatives) > 0 {
		catalog, err := ballots.NewCatalog(config.Alternatives...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCatalog(catalog))
	}

	return NewPanel(config.Metadata.Name, built, opts...)
}

// calculateConfigHash computes the SHA256 of the re-encoded config so
// formatting differences do not defeat the cache.
func (cl *ConfigLoader) calculateConfigHash(config *ElectionConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (cl *ConfigLoader) getCachedPanel(hash string) (*Panel, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	panel, ok := cl.cache[hash]
	return panel, ok
}

func (cl *ConfigLoader) cachePanel(hash string, panel *Panel) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache[hash] = panel
}

// ClearCache drops every cached panel.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache = make(map[string]*Panel)
}
