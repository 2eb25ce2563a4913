// Package config defines process configuration and its loader.
package config

import (
	"runtime"
)

// Store drivers accepted by StoreDriver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the evaluation store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// DatabasePath is the SQLite file used when StoreDriver is sqlite.
	DatabasePath string `koanf:"database_path"`

	// AnomalyZScore is the |z| at or above which a score is anomalous.
	AnomalyZScore float64 `koanf:"anomaly_zscore"`

	// AnomalyMinSamples is the smallest sample that may flag anomalies.
	AnomalyMinSamples int `koanf:"anomaly_min_samples"`

	// StrictCriteria rejects submissions naming unknown criteria instead of
	// dropping those scores.
	StrictCriteria bool `koanf:"strict_criteria"`

	// StatsWorkers bounds concurrent per-target statistics in results.
	StatsWorkers int `koanf:"stats_workers"`

	// MaxListLimit caps GET /scores?limit.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       DriverMemory,
		DatabasePath:      "peerscore.db",
		AnomalyZScore:     2.0,
		AnomalyMinSamples: 3,
		StatsWorkers:      runtime.NumCPU(),
		MaxListLimit:      500,
	}
}
