package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/internal/ports"
	"github.com/ahrav/go-ballot/internal/settings"
)

// LoaderFromSettings builds a ConfigLoader over the default registry with
// the observability, pacing and tie-break choices in s. Metrics are
// registered with reg when enabled.
func LoaderFromSettings(s *settings.Settings, reg prometheus.Registerer, logger *slog.Logger) (*ConfigLoader, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tb, err := s.TieBreak()
	if err != nil {
		return nil, err
	}

	opts := []PanelOption{WithDefaultTieBreak(tb)}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if s.MetricsEnabled {
		opts = append(opts, WithMetricsCollector(middleware.NewPrometheusMetrics(reg)))
	}
	if s.TracingEnabled {
		opts = append(opts, WithTracer(nil))
	}
	if s.NeutralityCheck {
		opts = append(opts, WithNeutralityCheck())
	}
	if s.RuleRateLimit > 0 {
		opts = append(opts, WithRateLimit(rate.Limit(s.RuleRateLimit), s.RuleRateBurst))
	}

	return NewConfigLoader(NewDefaultRuleRegistry(), opts...)
}

// PanelFromSettings loads the election configuration named by s.
func PanelFromSettings(ctx context.Context, s *settings.Settings, reg prometheus.Registerer, logger *slog.Logger) (*Panel, error) {
	if s.ElectionConfig == "" {
		return nil, ports.NewConfigError("election_config", ports.ErrConfigNotFound)
	}
	loader, err := LoaderFromSettings(s, reg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}
	return loader.LoadFromFile(ctx, s.ElectionConfig)
}
