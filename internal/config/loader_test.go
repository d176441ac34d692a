package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/covidmap/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.FallbackDays, convey.ShouldEqual, 2)
				convey.So(cfg.TopN, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COVIDMAP_ADDR", ":8080")
			_ = os.Setenv("COVIDMAP_FALLBACK_DAYS", "4")
			_ = os.Setenv("COVIDMAP_TOP_N", "5")
			_ = os.Setenv("COVIDMAP_RADIUS_SCALE", "0.5")
			_ = os.Setenv("COVIDMAP_MARKER_COLOR", "#ff0000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.FallbackDays, convey.ShouldEqual, 4)
				convey.So(cfg.TopN, convey.ShouldEqual, 5)
				convey.So(cfg.RadiusScale, convey.ShouldEqual, 0.5)
				convey.So(cfg.MarkerColor, convey.ShouldEqual, "#ff0000")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
source_url: "http://localhost:1234/{date}.csv"
fetch_timeout_ms: 2000
top_n: 3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COVIDMAP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.SourceURL, convey.ShouldEqual, "http://localhost:1234/{date}.csv")
				convey.So(cfg.FetchTimeoutMS, convey.ShouldEqual, 2000)
				convey.So(cfg.TopN, convey.ShouldEqual, 3)
				convey.So(cfg.FallbackDays, convey.ShouldEqual, 2) // From defaults
			})
		})

		convey.Convey("When loading metrics settings", func() {
			yamlContent := `
metrics_prefix: edge
metrics_labels:
  region: eu
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COVIDMAP_CONFIG", tmpFile)
			_ = os.Setenv("COVIDMAP_METRICS_ENABLED", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then prefix, labels and the switch should be read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsPrefix, convey.ShouldEqual, "edge")
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"region": "eu"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
top_n: 3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COVIDMAP_CONFIG", tmpFile)
			_ = os.Setenv("COVIDMAP_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080") // Overridden by env
				convey.So(cfg.TopN, convey.ShouldEqual, 3)       // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COVIDMAP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("COVIDMAP_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("COVIDMAP_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the source url has no date placeholder", func() {
			_ = os.Setenv("COVIDMAP_SOURCE_URL", "https://example.com/latest.csv")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "{date}")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("COVIDMAP_TOP_N", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"COVIDMAP_CONFIG",
		"COVIDMAP_ADDR",
		"COVIDMAP_SOURCE_URL",
		"COVIDMAP_FALLBACK_DAYS",
		"COVIDMAP_TOP_N",
		"COVIDMAP_RADIUS_SCALE",
		"COVIDMAP_MARKER_COLOR",
		"COVIDMAP_METRICS_ENABLED",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "covidmap-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
