package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/dedupe"
	"github.com/okian/peerscore/internal/domain/identity"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
	"github.com/okian/peerscore/pkg/logger"
	"github.com/okian/peerscore/pkg/metrics"
)

// Submission is one rater's scores for one target within one event.
type Submission struct {
	RaterID int64
	Target  model.TargetRef
	EventID int64 // model.GlobalEvent for unscoped criteria
	Comment string
	Scores  []scoring.Input
}

// SubmitResult reports what a submission changed.
type SubmitResult struct {
	EvaluationID int64 `json:"id"`
	Updated      bool  `json:"updated"`
	Stored       int   `json:"stored"`
	Dropped      int   `json:"dropped"`
	Clamped      int   `json:"clamped"`
	Healed       int   `json:"healed"`
}

// Submit creates the rater's evaluation of the target or merges the scores
// into the current one. Older duplicate evaluations in the same slot are
// removed. Unknown criteria are dropped unless strict criteria are enabled.
func (s *Service) Submit(ctx context.Context, sub Submission) (res SubmitResult, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Service.Submit",
		attribute.Int64("rater.id", sub.RaterID),
		attribute.Int64("target.id", sub.Target.ID),
		attribute.Int64("event.id", sub.EventID),
		attribute.Int("scores", len(sub.Scores)),
	)
	defer func() {
		metrics.RecordComputeLatency("submit", sinceMs(start))
		if err != nil {
			metrics.RecordSubmission(metrics.OutcomeRejected)
			if k := Kind(err); k != nil {
				metrics.RecordErrorByComponent("service", k.Error())
			}
		}
		endSpan(span, err)
	}()

	criteria, err := s.checkSubmission(ctx, sub)
	if err != nil {
		return SubmitResult{}, err
	}

	inputs := scoring.Dedupe(sub.Scores)
	res.Dropped = len(sub.Scores) - len(inputs)
	metrics.RecordScoresDropped(metrics.ReasonDuplicate, res.Dropped)

	accepted := inputs[:0]
	for _, in := range inputs {
		if _, ok := criteria[in.CriterionID]; ok {
			accepted = append(accepted, in)
			continue
		}
		if s.strictCriteria {
			return SubmitResult{}, wrapKind(ErrValidation, fmt.Errorf("%w: %d", ErrUnknownCriterion, in.CriterionID))
		}
		res.Dropped++
		metrics.RecordScoresDropped(metrics.ReasonUnknownCriterion, 1)
	}

	unlock := s.locker.Lock(dedupe.Key(sub.RaterID, sub.Target, sub.EventID))
	defer unlock()

	existing, err := s.store.FindEvaluations(ctx, sub.RaterID, sub.Target, sub.EventID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("find evaluations: %w", err)
	}
	current, stale := dedupe.Current(existing)
	for _, old := range stale {
		if err := s.store.DeleteEvaluation(ctx, old.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return SubmitResult{}, fmt.Errorf("remove stale evaluation %d: %w", old.ID, err)
		}
		res.Healed++
	}
	if res.Healed > 0 {
		metrics.RecordDuplicatesHealed(res.Healed)
		s.logger.Warn(ctx, "removed stale duplicate evaluations",
			logger.Int64("raterId", sub.RaterID),
			logger.String("target", sub.Target.Key()),
			logger.Int64("eventId", sub.EventID),
			logger.Int("removed", res.Healed),
		)
	}

	now := s.now()
	comment := strings.TrimSpace(sub.Comment)
	if current != nil {
		if err := s.store.UpdateEvaluationComment(ctx, current.ID, comment, now); err != nil {
			return SubmitResult{}, fmt.Errorf("update evaluation %d: %w", current.ID, err)
		}
		res.EvaluationID, res.Updated = current.ID, true
	} else {
		created, err := s.store.CreateEvaluation(ctx, model.Evaluation{
			RaterID:    sub.RaterID,
			TargetID:   sub.Target.ID,
			TargetName: targetName(sub.Target),
			EventID:    sub.EventID,
			Comment:    comment,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return SubmitResult{}, fmt.Errorf("create evaluation: %w", err)
		}
		res.EvaluationID = created.ID
	}

	for _, in := range accepted {
		c := criteria[in.CriterionID]
		value := scoring.ClampInt(in.Value, c.MaxScore)
		if scoring.WasClamped(in.Value, c.MaxScore) {
			res.Clamped++
			metrics.RecordScoreClamped()
		}
		if _, err := s.store.UpsertScore(ctx, res.EvaluationID, c.ID, value, now); err != nil {
			return SubmitResult{}, fmt.Errorf("store score for criterion %d: %w", c.ID, err)
		}
		res.Stored++
	}

	outcome := metrics.OutcomeCreated
	if res.Updated {
		outcome = metrics.OutcomeUpdated
	}
	metrics.RecordSubmission(outcome)
	s.logger.Debug(ctx, "evaluation submitted",
		logger.Int64("evaluationId", res.EvaluationID),
		logger.Bool("updated", res.Updated),
		logger.Int("stored", res.Stored),
		logger.Int("dropped", res.Dropped),
	)
	return res, nil
}

// checkSubmission runs every rejection rule in order and returns the active
// criteria of the submission's event keyed by id.
func (s *Service) checkSubmission(ctx context.Context, sub Submission) (map[int64]model.Criterion, error) {
	if err := scoring.Validate(scoring.Request{
		RaterID:    sub.RaterID,
		TargetID:   sub.Target.ID,
		TargetName: sub.Target.Name,
		EventID:    sub.EventID,
		Comment:    sub.Comment,
		Scores:     sub.Scores,
	}); err != nil {
		return nil, wrapKind(ErrValidation, err)
	}

	rater, err := s.store.Participant(ctx, sub.RaterID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, wrapKind(ErrNotFound, fmt.Errorf("%w: %d", ErrRaterNotFound, sub.RaterID))
	}
	if err != nil {
		return nil, fmt.Errorf("load rater: %w", err)
	}

	if sub.Target.ID > 0 {
		if sub.Target.ID == rater.ID {
			return nil, wrapKind(ErrValidation, ErrSelfEvaluation)
		}
		target, err := s.store.Participant(ctx, sub.Target.ID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !target.Active) {
			return nil, wrapKind(ErrNotFound, fmt.Errorf("%w: %d", ErrTargetNotFound, sub.Target.ID))
		}
		if err != nil {
			return nil, fmt.Errorf("load target: %w", err)
		}
	} else if identity.SameName(rater.FullName, sub.Target.Name) {
		return nil, wrapKind(ErrValidation, ErrSelfEvaluation)
	}

	if sub.EventID != model.GlobalEvent {
		ev, err := s.store.Event(ctx, sub.EventID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !ev.Active) {
			return nil, wrapKind(ErrPrecondition, fmt.Errorf("%w: %d", ErrEventInactive, sub.EventID))
		}
		if err != nil {
			return nil, fmt.Errorf("load event: %w", err)
		}
	}

	active, err := s.activeCriteria(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, wrapKind(ErrPrecondition, ErrNoActiveCriteria)
	}
	byID := make(map[int64]model.Criterion, len(active))
	for _, c := range active {
		byID[c.ID] = c
	}
	return byID, nil
}

func (s *Service) activeCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error) {
	criteria, err := s.store.Criteria(ctx, repository.CriterionFilter{EventID: &eventID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	return criteria, nil
}

// targetName keeps the display name of free-text targets only.
func targetName(ref model.TargetRef) string {
	if ref.ID > 0 {
		return ""
	}
	return strings.Join(strings.Fields(ref.Name), " ")
}
