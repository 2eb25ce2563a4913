// Package types contains the derived read shapes returned by the service.
// None of them are persisted.
package types

import (
	"time"

	"github.com/okian/peerscore/internal/domain/stats"
)

// CriterionMean is the mean score a target received on one criterion.
// Mean is nil when nobody scored the criterion.
type CriterionMean struct {
	CriterionID int64    `json:"criterion_id"`
	Name        string   `json:"name"`
	Mean        *float64 `json:"mean"`
	Count       int      `json:"count"`
}

// ResultsRow summarizes one normalized target identity.
type ResultsRow struct {
	TargetID     int64           `json:"target_id,omitempty"` // zero for free-text targets
	Name         string          `json:"name"`
	Group        string          `json:"group,omitempty"`
	Criteria     []CriterionMean `json:"criteria"`
	OverallMean  *float64        `json:"overall_mean"`
	Evaluations  int             `json:"evaluations"`
	RatersCount  int             `json:"raters_count"`
	AnomalyCount int             `json:"anomaly_count"`
}

// AnnotatedScore is a stored score with its anomaly details.
type AnnotatedScore struct {
	ID            int64   `json:"id"`
	CriterionID   int64   `json:"criterion_id"`
	CriterionName string  `json:"criterion_name"`
	MaxScore      float64 `json:"max_score"`
	Value         float64 `json:"score"`
	stats.Annotation
}

// TargetEvaluation is a rater's current evaluation of a target.
type TargetEvaluation struct {
	ID        int64            `json:"id"`
	RaterID   int64            `json:"rater_id"`
	RaterName string           `json:"rater_full_name"`
	EventID   int64            `json:"event_id"`
	Comment   string           `json:"comment"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Scores    []AnnotatedScore `json:"scores"`
}

// ScoreFlag is one score row of the admin listing.
type ScoreFlag struct {
	ScoreID       int64     `json:"score_id"`
	EvaluationID  int64     `json:"evaluation_id"`
	EventID       int64     `json:"event_id"`
	RaterID       int64     `json:"rater_id"`
	RaterName     string    `json:"rater_full_name"`
	TargetID      int64     `json:"target_id,omitempty"`
	TargetName    string    `json:"target_name"`
	CriterionID   int64     `json:"criterion_id"`
	CriterionName string    `json:"criterion_name"`
	MaxScore      float64   `json:"max_score"`
	Value         float64   `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	stats.Annotation
}
