package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/stats"
	"github.com/okian/peerscore/pkg/metrics"
)

// targetSample is the population of current scores received by one target.
type targetSample struct {
	evaluations []model.Evaluation
	stats       map[int64]stats.Stat
}

// StatsFor computes the per-criterion statistics of every current score the
// registered target received, across all events. Scores of inactive
// criteria are skipped unless includeInactive is set. The result is computed
// fresh on every call; callers rendering many rows should keep it.
func (s *Service) StatsFor(ctx context.Context, targetID int64, includeInactive bool) (out map[int64]stats.Stat, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Service.StatsFor",
		attribute.Int64("target.id", targetID),
		attribute.Bool("include_inactive", includeInactive),
	)
	defer func() {
		metrics.RecordComputeLatency("stats", sinceMs(start))
		endSpan(span, err)
	}()

	allowed, err := s.criteriaFilter(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleFor(ctx, targetID, allowed)
	if err != nil {
		return nil, err
	}
	return sample.stats, nil
}

// criteriaFilter returns the set of criterion ids scores may count for, or
// nil when every criterion counts.
func (s *Service) criteriaFilter(ctx context.Context, includeInactive bool) (map[int64]struct{}, error) {
	if includeInactive {
		return nil, nil
	}
	active, err := s.store.Criteria(ctx, repository.CriterionFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	allowed := make(map[int64]struct{}, len(active))
	for _, c := range active {
		allowed[c.ID] = struct{}{}
	}
	return allowed, nil
}

func (s *Service) sampleFor(ctx context.Context, targetID int64, allowed map[int64]struct{}) (targetSample, error) {
	evals, err := s.store.Evaluations(ctx, repository.EvaluationFilter{TargetID: targetID})
	if err != nil {
		return targetSample{}, fmt.Errorf("load evaluations of target %d: %w", targetID, err)
	}
	current := dedupe.Latest(evals)

	buckets := make(map[int64][]float64)
	for _, e := range current {
		for _, sc := range e.Scores {
			if !counts(allowed, sc.CriterionID) {
				continue
			}
			buckets[sc.CriterionID] = append(buckets[sc.CriterionID], sc.Value)
		}
	}
	out := make(map[int64]stats.Stat, len(buckets))
	for cid, values := range buckets {
		out[cid] = stats.Compute(values)
	}
	return targetSample{evaluations: current, stats: out}, nil
}

// anomalyCount counts the scores of sample that are anomalous against its
// own statistics.
func (s *Service) anomalyCount(sample targetSample, allowed map[int64]struct{}) int {
	n := 0
	for _, e := range sample.evaluations {
		for _, sc := range e.Scores {
			if !counts(allowed, sc.CriterionID) {
				continue
			}
			st, ok := sample.stats[sc.CriterionID]
			if ok && s.thresholds.IsAnomaly(sc.Value, st) {
				n++
			}
		}
	}
	return n
}

func counts(allowed map[int64]struct{}, criterionID int64) bool {
	if allowed == nil {
		return true
	}
	_, ok := allowed[criterionID]
	return ok
}
