// Package repository defines the evaluation store interface and its memory
// and SQLite implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/peerscore/internal/domain/model"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// CriterionFilter narrows a criteria listing.
type CriterionFilter struct {
	EventID    *int64 // nil lists every event; model.GlobalEvent lists unscoped criteria
	ActiveOnly bool
}

// EvaluationFilter narrows an evaluation listing. Zero fields do not filter.
type EvaluationFilter struct {
	TargetID int64
	RaterID  int64
	EventID  *int64 // nil matches every event
}

// Store provides read/write access to participants, criteria and evaluations.
// Evaluations are always returned with their scores loaded, ordered by
// score id. Missing rows surface as ErrNotFound.
type Store interface {
	CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
	Participant(ctx context.Context, id int64) (model.Participant, error)
	Participants(ctx context.Context) ([]model.Participant, error)
	SetParticipantActive(ctx context.Context, id int64, active bool) error

	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	Event(ctx context.Context, id int64) (model.Event, error)
	SetEventActive(ctx context.Context, id int64, active bool, at time.Time) error

	CreateCriterion(ctx context.Context, c model.Criterion) (model.Criterion, error)
	Criteria(ctx context.Context, f CriterionFilter) ([]model.Criterion, error)
	SetCriterionActive(ctx context.Context, id int64, active bool) error

	// FindEvaluations returns every evaluation in the (rater, target, event)
	// slot, newest-first. Free-text targets match by normalized name.
	FindEvaluations(ctx context.Context, raterID int64, ref model.TargetRef, eventID int64) ([]model.Evaluation, error)
	Evaluations(ctx context.Context, f EvaluationFilter) ([]model.Evaluation, error)
	Evaluation(ctx context.Context, id int64) (model.Evaluation, error)
	CountEvaluations(ctx context.Context) (int, error)
	CreateEvaluation(ctx context.Context, e model.Evaluation) (model.Evaluation, error)
	UpdateEvaluationComment(ctx context.Context, id int64, comment string, at time.Time) error
	// DeleteEvaluation removes the evaluation and all of its scores.
	DeleteEvaluation(ctx context.Context, id int64) error
	// DeleteEvaluations removes every evaluation rater made of ref in any event.
	DeleteEvaluations(ctx context.Context, raterID int64, ref model.TargetRef) (int, error)
	DeleteAllEvaluations(ctx context.Context) (int, error)

	// UpsertScore writes the score of one criterion within an evaluation,
	// replacing the previous value if one exists.
	UpsertScore(ctx context.Context, evaluationID, criterionID int64, value float64, at time.Time) (model.Score, error)
	Score(ctx context.Context, id int64) (model.Score, error)
	UpdateScore(ctx context.Context, id int64, value float64, at time.Time) error
	DeleteScore(ctx context.Context, id int64) error

	Close() error
}
