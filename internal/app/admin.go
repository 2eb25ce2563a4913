package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/peerscore/internal/adapters/repository"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
	"github.com/okian/peerscore/pkg/logger"
	"github.com/okian/peerscore/pkg/metrics"
)

// NewParticipant describes a participant to register.
type NewParticipant struct {
	Nickname string `validate:"required,max=64"`
	FullName string `validate:"required,max=200"`
	Group    string `validate:"max=64"`
}

// NewEvent describes an event to create.
type NewEvent struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	Active      bool
}

// NewCriterion describes a criterion to create.
type NewCriterion struct {
	EventID     int64   `validate:"gte=0"`
	Name        string  `validate:"required,max=200"`
	Description string  `validate:"max=2000"`
	MaxScore    float64 `validate:"gte=0"`
	Active      bool
}

// CreateParticipant registers an active participant.
func (s *Service) CreateParticipant(ctx context.Context, in NewParticipant) (model.Participant, error) {
	in.Nickname, in.FullName = strings.TrimSpace(in.Nickname), strings.TrimSpace(in.FullName)
	if err := validate.Struct(in); err != nil {
		return model.Participant{}, wrapKind(ErrValidation, err)
	}
	p, err := s.store.CreateParticipant(ctx, model.Participant{
		Nickname:  in.Nickname,
		FullName:  strings.Join(strings.Fields(in.FullName), " "),
		Group:     strings.TrimSpace(in.Group),
		Active:    true,
		CreatedAt: s.now(),
	})
	if err != nil {
		return model.Participant{}, conflictOr(err)
	}
	return p, nil
}

// CreateEvent creates an event.
func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (model.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return model.Event{}, wrapKind(ErrValidation, err)
	}
	now := s.now()
	return s.store.CreateEvent(ctx, model.Event{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// SetParticipantActive enables or disables a participant as a target.
func (s *Service) SetParticipantActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetParticipantActive(ctx, id, active); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "participant activity changed", logger.Int64("participantId", id), logger.Bool("active", active))
	return nil
}

// SetEventActive opens or closes an event for submissions.
func (s *Service) SetEventActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetEventActive(ctx, id, active, s.now()); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "event activity changed", logger.Int64("eventId", id), logger.Bool("active", active))
	return nil
}

// CreateCriterion creates a criterion within an event or, for
// model.GlobalEvent, an unscoped one.
func (s *Service) CreateCriterion(ctx context.Context, in NewCriterion) (model.Criterion, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return model.Criterion{}, wrapKind(ErrValidation, err)
	}
	if in.EventID != model.GlobalEvent {
		if _, err := s.store.Event(ctx, in.EventID); err != nil {
			return model.Criterion{}, fromStore(err)
		}
	}
	c, err := s.store.CreateCriterion(ctx, model.Criterion{
		EventID:     in.EventID,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		MaxScore:    in.MaxScore,
		Active:      in.Active,
	})
	if err != nil {
		return model.Criterion{}, conflictOr(err)
	}
	return c, nil
}

// SetCriterionActive enables or disables a criterion.
func (s *Service) SetCriterionActive(ctx context.Context, id int64, active bool) error {
	if err := s.store.SetCriterionActive(ctx, id, active); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "criterion activity changed", logger.Int64("criterionId", id), logger.Bool("active", active))
	return nil
}

// PatchScore overwrites a stored score. The value is clamped to the
// criterion's range like any submission.
func (s *Service) PatchScore(ctx context.Context, scoreID int64, value int) (model.Score, error) {
	sc, err := s.store.Score(ctx, scoreID)
	if err != nil {
		return model.Score{}, fromStore(err)
	}
	all, err := s.store.Criteria(ctx, repository.CriterionFilter{})
	if err != nil {
		return model.Score{}, fmt.Errorf("load criteria: %w", err)
	}
	var (
		criterion model.Criterion
		found     bool
	)
	for _, c := range all {
		if c.ID == sc.CriterionID {
			criterion, found = c, true
			break
		}
	}
	if !found {
		return model.Score{}, wrapKind(ErrNotFound, fmt.Errorf("%w: %d", ErrUnknownCriterion, sc.CriterionID))
	}

	clamped := scoring.ClampInt(value, criterion.MaxScore)
	if scoring.WasClamped(value, criterion.MaxScore) {
		metrics.RecordScoreClamped()
	}
	now := s.now()
	if err := s.store.UpdateScore(ctx, scoreID, clamped, now); err != nil {
		return model.Score{}, fromStore(err)
	}
	s.logger.Info(ctx, "score patched",
		logger.Int64("scoreId", scoreID),
		logger.Float64("before", sc.Value),
		logger.Float64("after", clamped),
	)
	sc.Value, sc.UpdatedAt = clamped, now
	return sc, nil
}

// DeleteScore removes one score.
func (s *Service) DeleteScore(ctx context.Context, scoreID int64) error {
	if err := s.store.DeleteScore(ctx, scoreID); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "score deleted", logger.Int64("scoreId", scoreID))
	return nil
}

// PatchComment replaces the comment of an evaluation.
func (s *Service) PatchComment(ctx context.Context, evaluationID int64, comment string) error {
	comment = strings.TrimSpace(comment)
	if len(comment) > scoring.MaxCommentLength {
		return wrapKind(ErrValidation, fmt.Errorf("comment longer than %d bytes", scoring.MaxCommentLength))
	}
	if err := s.store.UpdateEvaluationComment(ctx, evaluationID, comment, s.now()); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "evaluation comment patched", logger.Int64("evaluationId", evaluationID))
	return nil
}

// DeleteEvaluation removes an evaluation and its scores.
func (s *Service) DeleteEvaluation(ctx context.Context, evaluationID int64) error {
	if err := s.store.DeleteEvaluation(ctx, evaluationID); err != nil {
		return fromStore(err)
	}
	s.logger.Info(ctx, "evaluation deleted", logger.Int64("evaluationId", evaluationID))
	return nil
}

// DeleteRaterTarget removes every evaluation a rater made of a target, in
// every event.
func (s *Service) DeleteRaterTarget(ctx context.Context, raterID int64, target model.TargetRef) (int, error) {
	if raterID <= 0 || target.IsZero() {
		return 0, wrapKind(ErrValidation, fmt.Errorf("rater and target are required"))
	}
	n, err := s.store.DeleteEvaluations(ctx, raterID, target)
	if err != nil {
		return 0, fmt.Errorf("delete evaluations: %w", err)
	}
	s.logger.Info(ctx, "rater evaluations deleted",
		logger.Int64("raterId", raterID),
		logger.String("target", target.Key()),
		logger.Int("removed", n),
	)
	return n, nil
}

// PurgeEvaluations removes every evaluation and score.
func (s *Service) PurgeEvaluations(ctx context.Context) (int, error) {
	n, err := s.store.DeleteAllEvaluations(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge evaluations: %w", err)
	}
	s.logger.Warn(ctx, "all evaluations purged", logger.Int("removed", n))
	metrics.UpdateEvaluationsTotal(0)
	return n, nil
}

func conflictOr(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return wrapKind(ErrPrecondition, err)
	}
	return err
}
