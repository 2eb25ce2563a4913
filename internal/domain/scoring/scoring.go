// Package scoring bounds submitted scores to a criterion's range and
// validates inbound submission shapes.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Submission size limits.
const (
	MaxCommentLength = 2000
	MaxScoresPerCall = 200
)

// ErrInvalid marks a submission that failed structural validation.
var ErrInvalid = errors.New("invalid submission")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Clamp bounds value to [0, maxScore]. It is applied on every write, even
// when the caller has already validated, so stored scores never leave the
// criterion's range.
func Clamp(value, maxScore float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if maxScore < 0 {
		maxScore = 0
	}
	if value > maxScore {
		return maxScore
	}
	return value
}

// ClampInt bounds an integer submission to [0, floor(maxScore)]. Only
// integer submissions are accepted even though maxima are real.
func ClampInt(value int, maxScore float64) float64 {
	return Clamp(float64(value), math.Floor(maxScore))
}

// WasClamped reports whether ClampInt changed value.
func WasClamped(value int, maxScore float64) bool {
	return ClampInt(value, maxScore) != float64(value)
}

// Input is one (criterion, value) pair of a submission.
type Input struct {
	CriterionID int64 `json:"criterion_id" validate:"gt=0"`
	Value       int   `json:"score"`
}

// Request is the structural shape of a submission before any storage lookup.
type Request struct {
	RaterID    int64   `validate:"gt=0"`
	TargetID   int64   `validate:"gte=0"`
	TargetName string  `validate:"max=200"`
	EventID    int64   `validate:"gte=0"`
	Comment    string  `validate:"max=2000"`
	Scores     []Input `validate:"max=200,dive"`
}

// Validate checks r and requires exactly one usable target key: an id, or a
// non-blank name.
func Validate(r Request) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	if r.TargetID == 0 && strings.TrimSpace(r.TargetName) == "" {
		return fmt.Errorf("%w: target id or target name is required", ErrInvalid)
	}
	return nil
}

// Dedupe keeps the first occurrence of each criterion id.
func Dedupe(in []Input) []Input {
	seen := make(map[int64]struct{}, len(in))
	out := make([]Input, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.CriterionID]; ok {
			continue
		}
		seen[s.CriterionID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
