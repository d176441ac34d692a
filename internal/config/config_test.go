package config_test

import (
	"errors"
	"testing"

	"github.com/okian/covidmap/internal/adapters/source"
	"github.com/okian/covidmap/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SourceURL, convey.ShouldEqual, config.DefaultSourceURL)
			convey.So(cfg.FetchTimeoutMS, convey.ShouldEqual, 15_000)
			convey.So(cfg.FallbackDays, convey.ShouldEqual, 2)
			convey.So(cfg.TopN, convey.ShouldEqual, 10)
			convey.So(cfg.MarkerColor, convey.ShouldEqual, "#3186cc")
			convey.So(cfg.RadiusScale, convey.ShouldEqual, 1.0)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
		})

		convey.Convey("And the source template should be the fetcher's own", func() {
			convey.So(cfg.SourceURL, convey.ShouldEqual, source.DefaultURLTemplate)
			convey.So(config.DatePlaceholder, convey.ShouldEqual, source.Placeholder)
		})

		convey.Convey("And it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field", t, func() {
		cases := map[string]func(c *config.Config){
			"addr":          func(c *config.Config) { c.Addr = "" },
			"source_url":    func(c *config.Config) { c.SourceURL = "https://example.com/today.csv" },
			"fallback_days": func(c *config.Config) { c.FallbackDays = -1 },
			"top_n":         func(c *config.Config) { c.TopN = 0 },

			"fetch_rate_per_minute": func(c *config.Config) { c.FetchRatePerMinute = -1 },
			"metrics_prefix":        func(c *config.Config) { c.MetricsPrefix = "bad-prefix" },
			"metrics_labels":        func(c *config.Config) { c.MetricsLabels = map[string]string{"bad key": "x"} },
		}

		for field, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, field)
		}
	})
}
