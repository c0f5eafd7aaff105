// Package settings loads process-level settings for the election engine.
//
// Settings are layered, lowest precedence first:
//  1. defaults (New)
//  2. a YAML file named by BALLOT_CONFIG, if set
//  3. environment variables prefixed BALLOT_
package settings

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ahrav/go-ballot/internal/domain"
)

// Environment variables read by Load.
const (
	EnvConfigFile = "BALLOT_CONFIG"
	EnvPrefix     = "BALLOT_"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrLoadSettings    = errors.New("load settings failed")
)

// Settings holds process configuration.
type Settings struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DefaultTieBreak is used by rules when neither the election
	// configuration nor the rule names one.
	DefaultTieBreak string `koanf:"default_tie_break"`

	// MetricsEnabled decorates rules with Prometheus metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// TracingEnabled wraps rules in OpenTelemetry spans.
	TracingEnabled bool `koanf:"tracing_enabled"`

	// ElectionConfig is the path of the election YAML to load.
	ElectionConfig string `koanf:"election_config"`

	// NeutralityCheck re-runs every rule with relabeled alternatives.
	NeutralityCheck bool `koanf:"neutrality_check"`

	// RuleRateLimit caps rule executions per second; zero means unlimited.
	RuleRateLimit float64 `koanf:"rule_rate_limit"`

	// RuleRateBurst is the token bucket size used with RuleRateLimit.
	RuleRateBurst int `koanf:"rule_rate_burst"`
}

// New returns Settings populated with defaults.
func New() *Settings {
	return &Settings{
		LogLevel:        "info",
		DefaultTieBreak: string(domain.TieMax),
		MetricsEnabled:  true,
		TracingEnabled:  false,
		RuleRateBurst:   1,
	}
}

// Load builds Settings by layering defaults, the optional file and the
// environment, then validates the result.
func Load() (*Settings, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadSettings, path, err)
		}
	}

	// BALLOT_LOG_LEVEL -> log_level. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadSettings, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadSettings, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the log level, the default tie-break and the rate
// limit.
func (s *Settings) Validate() error {
	if _, err := s.Level(); err != nil {
		return err
	}
	if _, err := s.TieBreak(); err != nil {
		return err
	}
	if s.RuleRateLimit < 0 {
		return fmt.Errorf("%w: rule_rate_limit must not be negative", ErrInvalidSettings)
	}
	if s.RuleRateLimit > 0 && s.RuleRateBurst < 1 {
		return fmt.Errorf("%w: rule_rate_burst must be at least 1", ErrInvalidSettings)
	}
	return nil
}

// Level parses LogLevel.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidSettings, s.LogLevel)
	}
	return level, nil
}

// TieBreak parses DefaultTieBreak.
func (s *Settings) TieBreak() (domain.TieBreak, error) {
	tb, err := domain.ParseTieBreak(s.DefaultTieBreak)
	if err != nil {
		return domain.TieBreak{}, fmt.Errorf("%w: default_tie_break: %w", ErrInvalidSettings, err)
	}
	return tb, nil
}

// Logger returns a JSON slog logger writing to w at the configured level.
// An invalid level falls back to info.
func (s *Settings) Logger(w io.Writer) *slog.Logger {
	level, err := s.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
