package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/stats"
	"github.com/okian/peerscore/internal/domain/types"
	"github.com/okian/peerscore/pkg/metrics"
)

// ScoreFlagQuery filters the score listing. Zero ids do not filter.
type ScoreFlagQuery struct {
	TargetID    int64  `validate:"gte=0"`
	RaterID     int64  `validate:"gte=0"`
	CriterionID int64  `validate:"gte=0"`
	EventID     *int64 `validate:"omitempty,gte=0"`
	AnomalyOnly bool
	Limit       int `validate:"gte=0"`
	Offset      int `validate:"gte=0"`
}

// TargetEvaluations returns the newest current evaluation of every rater of
// a registered target across events, newest first, with each score annotated
// against the target's statistics.
func (s *Service) TargetEvaluations(ctx context.Context, targetID int64) (out []types.TargetEvaluation, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Service.TargetEvaluations", attribute.Int64("target.id", targetID))
	defer func() {
		metrics.RecordComputeLatency("target_evaluations", sinceMs(start))
		endSpan(span, err)
	}()

	if _, err := s.store.Participant(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, wrapKind(ErrNotFound, fmt.Errorf("%w: %d", ErrTargetNotFound, targetID))
		}
		return nil, fmt.Errorf("load target: %w", err)
	}

	allowed, err := s.criteriaFilter(ctx, false)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleFor(ctx, targetID, allowed)
	if err != nil {
		return nil, err
	}
	criteria, names, err := s.lookups(ctx)
	if err != nil {
		return nil, err
	}

	out = make([]types.TargetEvaluation, 0, len(sample.evaluations))
	seen := make(map[int64]struct{}, len(sample.evaluations))
	for _, e := range sample.evaluations {
		if _, ok := seen[e.RaterID]; ok {
			continue
		}
		seen[e.RaterID] = struct{}{}
		te := types.TargetEvaluation{
			ID:        e.ID,
			RaterID:   e.RaterID,
			RaterName: names[e.RaterID],
			EventID:   e.EventID,
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
			Scores:    make([]types.AnnotatedScore, 0, len(e.Scores)),
		}
		for _, sc := range e.Scores {
			c := criteria[sc.CriterionID]
			te.Scores = append(te.Scores, types.AnnotatedScore{
				ID:            sc.ID,
				CriterionID:   sc.CriterionID,
				CriterionName: c.Name,
				MaxScore:      c.MaxScore,
				Value:         sc.Value,
				Annotation:    s.thresholds.Annotate(sc.Value, statOf(sample.stats, sc.CriterionID)),
			})
		}
		out = append(out, te)
	}
	return out, nil
}

// ScoreFlags lists current scores with their anomaly details. Statistics
// include inactive criteria and are computed once per target per call.
func (s *Service) ScoreFlags(ctx context.Context, q ScoreFlagQuery) (out []types.ScoreFlag, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Service.ScoreFlags",
		attribute.Int64("target.id", q.TargetID),
		attribute.Bool("anomaly_only", q.AnomalyOnly),
	)
	defer func() {
		metrics.RecordComputeLatency("score_flags", sinceMs(start))
		endSpan(span, err)
	}()

	if err := validate.Struct(q); err != nil {
		return nil, wrapKind(ErrValidation, err)
	}
	limit := q.Limit
	if limit == 0 || limit > s.maxListLimit {
		limit = s.maxListLimit
	}

	evals, err := s.store.Evaluations(ctx, repository.EvaluationFilter{
		TargetID: q.TargetID,
		RaterID:  q.RaterID,
		EventID:  q.EventID,
	})
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	current := dedupe.Latest(evals)

	criteria, names, err := s.lookups(ctx)
	if err != nil {
		return nil, err
	}

	cache := make(map[int64]map[int64]stats.Stat)
	skipped, flagged := 0, 0
	for _, e := range current {
		var targetStats map[int64]stats.Stat
		if e.TargetID > 0 {
			st, ok := cache[e.TargetID]
			if !ok {
				sample, err := s.sampleFor(ctx, e.TargetID, nil)
				if err != nil {
					return nil, err
				}
				st = sample.stats
				cache[e.TargetID] = st
			}
			targetStats = st
		}

		for _, sc := range e.Scores {
			if q.CriterionID > 0 && sc.CriterionID != q.CriterionID {
				continue
			}
			ann := s.thresholds.Annotate(sc.Value, statOf(targetStats, sc.CriterionID))
			if q.AnomalyOnly && !ann.Anomaly {
				continue
			}
			if ann.Anomaly {
				flagged++
			}
			if skipped < q.Offset {
				skipped++
				continue
			}
			if len(out) >= limit {
				continue
			}
			c := criteria[sc.CriterionID]
			name := e.TargetName
			if e.TargetID > 0 {
				name = names[e.TargetID]
			}
			out = append(out, types.ScoreFlag{
				ScoreID:       sc.ID,
				EvaluationID:  e.ID,
				EventID:       e.EventID,
				RaterID:       e.RaterID,
				RaterName:     names[e.RaterID],
				TargetID:      e.TargetID,
				TargetName:    name,
				CriterionID:   sc.CriterionID,
				CriterionName: c.Name,
				MaxScore:      c.MaxScore,
				Value:         sc.Value,
				Comment:       e.Comment,
				CreatedAt:     e.CreatedAt,
				Annotation:    ann,
			})
		}
	}
	metrics.RecordAnomaliesFlagged(flagged)
	if out == nil {
		out = []types.ScoreFlag{}
	}
	return out, nil
}

// Criteria lists the criteria of an event, or the unscoped criteria for
// model.GlobalEvent.
func (s *Service) Criteria(ctx context.Context, eventID int64, activeOnly bool) ([]model.Criterion, error) {
	if eventID != model.GlobalEvent {
		if _, err := s.store.Event(ctx, eventID); err != nil {
			return nil, fromStore(err)
		}
	}
	out, err := s.store.Criteria(ctx, repository.CriterionFilter{EventID: &eventID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	if out == nil {
		out = []model.Criterion{}
	}
	return out, nil
}

// lookups returns every criterion and every participant's full name keyed by
// id.
func (s *Service) lookups(ctx context.Context) (map[int64]model.Criterion, map[int64]string, error) {
	all, err := s.store.Criteria(ctx, repository.CriterionFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("load criteria: %w", err)
	}
	criteria := make(map[int64]model.Criterion, len(all))
	for _, c := range all {
		criteria[c.ID] = c
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load participants: %w", err)
	}
	names := make(map[int64]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.FullName
	}
	return criteria, names, nil
}

func statOf(m map[int64]stats.Stat, criterionID int64) *stats.Stat {
	st, ok := m[criterionID]
	if !ok {
		return nil
	}
	return &st
}
