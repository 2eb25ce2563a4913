package service

import (
	"context"
	"fmt"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/config"
	"github.com/okian/peerscore/internal/domain/stats"
)

// Options maps a Config to service options.
func Options(cfg *config.Config) []Option {
	return []Option{
		WithThresholds(stats.Thresholds{MinSamples: cfg.AnomalyMinSamples, ZScore: cfg.AnomalyZScore}),
		WithStrictCriteria(cfg.StrictCriteria),
		WithStatsWorkers(cfg.StatsWorkers),
		WithMaxListLimit(cfg.MaxListLimit),
	}
}

// Open opens the configured store and builds a Service over it. The store is
// closed by Stop.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return New(store, append(Options(cfg), opts...)...), nil
}
