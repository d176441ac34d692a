package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "COVIDMAP_"
	envFileVar = "COVIDMAP_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if COVIDMAP_CONFIG is set
//  3. env (prefix COVIDMAP_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// COVIDMAP_FETCH_TIMEOUT_MS -> fetch_timeout_ms (flat keys, underscores kept)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !strings.Contains(c.SourceURL, DatePlaceholder):
		return fmt.Errorf("%w: source_url must contain %s", ErrInvalidConfig, DatePlaceholder)
	case c.FallbackDays < 0:
		return fmt.Errorf("%w: fallback_days must not be negative", ErrInvalidConfig)
	case c.FetchRatePerMinute < 0:
		return fmt.Errorf("%w: fetch_rate_per_minute must not be negative", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top_n must be positive", ErrInvalidConfig)
	case c.MetricsPrefix != "" && !metricName.MatchString(c.MetricsPrefix):
		return fmt.Errorf("%w: metrics_prefix %q is not a metric name", ErrInvalidConfig, c.MetricsPrefix)
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels key %q is not a label name", ErrInvalidConfig, name)
		}
	}
	return nil
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
