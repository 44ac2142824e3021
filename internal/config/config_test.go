package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/calmark/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StaleColorFallback, convey.ShouldBeTrue)
			convey.So(cfg.Palette, convey.ShouldHaveLength, 8)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then an empty timezone resolves to a nil location", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc, convey.ShouldBeNil)
		})

		convey.Convey("Then the default palette is buildable", func() {
			p, err := cfg.DotPalette()
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.Len(), convey.ShouldEqual, 8)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus_Mons"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a palette entry is not a hex color", func() {
			cfg.Palette = []string{"#FFFFFF", "blue"}

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "palette")
			})
		})

		convey.Convey("When the cron spec is malformed", func() {
			cfg.RefreshCron = "every tuesday"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the cron spec is empty", func() {
			cfg.RefreshCron = ""

			convey.Convey("Then scheduling is simply disabled", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a real timezone is set", func() {
			cfg.Timezone = "Europe/Berlin"

			convey.Convey("Then it resolves", func() {
				loc, err := cfg.Location()
				convey.So(err, convey.ShouldBeNil)
				convey.So(loc.String(), convey.ShouldEqual, "Europe/Berlin")
			})
		})
	})
}
