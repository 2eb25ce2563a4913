package model

import "time"

// Evaluation is one rater's assessment of one target within one event.
// Exactly one of TargetID and TargetName identifies the target; TargetID
// wins when both are set.
type Evaluation struct {
	ID         int64     `json:"id"`
	RaterID    int64     `json:"rater_id"`
	TargetID   int64     `json:"target_id,omitempty"`
	TargetName string    `json:"target_name,omitempty"`
	EventID    int64     `json:"event_id"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Scores     []Score   `json:"scores,omitempty"`
}

// Ref returns the target reference recorded on e.
func (e Evaluation) Ref() TargetRef {
	if e.TargetID > 0 {
		return TargetRef{ID: e.TargetID}
	}
	return TargetRef{Name: e.TargetName}
}

// Score is the value given to one criterion within one evaluation. At most
// one score exists per (evaluation, criterion).
type Score struct {
	ID           int64     `json:"id"`
	EvaluationID int64     `json:"evaluation_id"`
	CriterionID  int64     `json:"criterion_id"`
	Value        float64   `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
