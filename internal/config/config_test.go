package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/peerscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.AnomalyZScore, convey.ShouldEqual, 2.0)
			convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 3)
			convey.So(cfg.StrictCriteria, convey.ShouldBeFalse)
			convey.So(cfg.StatsWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxListLimit, convey.ShouldEqual, 500)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
