// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - External errors are wrapped with this package's sentinel errors.
package config

import "github.com/okian/covidmap/internal/adapters/source"

// DefaultSourceURL is the JHU CSSE daily report location. {date} is replaced
// with an MM-DD-YYYY date.
const DefaultSourceURL = source.DefaultURLTemplate

// DatePlaceholder marks where the report date goes in SourceURL.
const DatePlaceholder = source.Placeholder

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SourceURL is the daily report template; must contain {date}.
	SourceURL string `koanf:"source_url"`

	// FetchTimeoutMS bounds one upstream download.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// FetchRatePerMinute caps upstream downloads; 0 disables the cap.
	FetchRatePerMinute int `koanf:"fetch_rate_per_minute"`

	// FallbackDays is how many earlier days are tried when today's report is missing.
	FallbackDays int `koanf:"fallback_days"`

	// TopN caps the countries table.
	TopN int `koanf:"top_n"`

	// MarkerColor is the stroke and fill color of map bubbles.
	MarkerColor string `koanf:"marker_color"`

	// RadiusScale multiplies the confirmed count to get a bubble radius in meters.
	RadiusScale float64 `koanf:"radius_scale"`

	// BreakerTimeoutMS is how long the upstream circuit stays open.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// BreakerMaxFailures is the consecutive failure count that opens the circuit.
	BreakerMaxFailures int `koanf:"breaker_max_failures"`

	// MetricsEnabled turns every recorder on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsPrefix is inserted before each metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		SourceURL:          DefaultSourceURL,
		FetchTimeoutMS:     15_000,
		FallbackDays:       2,
		TopN:               10,
		MarkerColor:        "#3186cc",
		RadiusScale:        1.0,
		BreakerTimeoutMS:   60_000,
		BreakerMaxFailures: 5,
		MetricsEnabled:     true,
	}
}
