package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/peerscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.AnomalyZScore, convey.ShouldEqual, 2.0)
				convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PEERSCORE_ADDR", ":8080")
			_ = os.Setenv("PEERSCORE_STORE_DRIVER", "sqlite")
			_ = os.Setenv("PEERSCORE_DATABASE_PATH", "/var/lib/peerscore/data.db")
			_ = os.Setenv("PEERSCORE_ANOMALY_ZSCORE", "2.5")
			_ = os.Setenv("PEERSCORE_ANOMALY_MIN_SAMPLES", "5")
			_ = os.Setenv("PEERSCORE_STRICT_CRITERIA", "true")
			_ = os.Setenv("PEERSCORE_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "/var/lib/peerscore/data.db")
				convey.So(cfg.AnomalyZScore, convey.ShouldEqual, 2.5)
				convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 5)
				convey.So(cfg.StrictCriteria, convey.ShouldBeTrue)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# anomaly tuning
addr: ":9090"
store_driver: sqlite
database_path: "scores.db"
anomaly_zscore: 3
stats_workers: 4
max_list_limit: 50  # page cap
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEERSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep defaults for missing keys", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "scores.db")
				convey.So(cfg.AnomalyZScore, convey.ShouldEqual, 3.0)
				convey.So(cfg.StatsWorkers, convey.ShouldEqual, 4)
				convey.So(cfg.MaxListLimit, convey.ShouldEqual, 50)
				convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
anomaly_min_samples: 4
stats_workers: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEERSCORE_CONFIG", tmpFile)
			_ = os.Setenv("PEERSCORE_ADDR", ":8080")
			_ = os.Setenv("PEERSCORE_STATS_WORKERS", "16")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StatsWorkers, convey.ShouldEqual, 16)
				convey.So(cfg.AnomalyMinSamples, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEERSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PEERSCORE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PEERSCORE_ANOMALY_MIN_SAMPLES", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("PEERSCORE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		cases := map[string]func(*config.Config){
			"unknown store_driver":   func(c *config.Config) { c.StoreDriver = "postgres" },
			"database_path":          func(c *config.Config) { c.StoreDriver, c.DatabasePath = config.DriverSQLite, "" },
			"anomaly_zscore":         func(c *config.Config) { c.AnomalyZScore = -1 },
			"anomaly_min_samples":    func(c *config.Config) { c.AnomalyMinSamples = -2 },
			"stats_workers":          func(c *config.Config) { c.StatsWorkers = 0 },
			"max_list_limit":         func(c *config.Config) { c.MaxListLimit = 0 },
			"addr must not be empty": func(c *config.Config) { c.Addr = "" },
		}

		for want, mutate := range cases {
			convey.Convey("When "+want+" is broken", func() {
				mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation names it", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, want)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PEERSCORE_CONFIG",
		"PEERSCORE_ADDR",
		"PEERSCORE_LOG_LEVEL",
		"PEERSCORE_LOG_FORMAT",
		"PEERSCORE_STORE_DRIVER",
		"PEERSCORE_DATABASE_PATH",
		"PEERSCORE_ANOMALY_ZSCORE",
		"PEERSCORE_ANOMALY_MIN_SAMPLES",
		"PEERSCORE_STRICT_CRITERIA",
		"PEERSCORE_STATS_WORKERS",
		"PEERSCORE_MAX_LIST_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "peerscore-config-*.yaml")
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
