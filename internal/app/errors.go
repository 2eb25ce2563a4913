package service

import (
	"errors"
	"fmt"

	"github.com/okian/peerscore/internal/adapters/repository"
)

// Error kinds. Every error returned by the service wraps exactly one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
	ErrNotFound     = errors.New("not found")
)

// Specific causes, wrapped together with their kind.
var (
	ErrSelfEvaluation   = errors.New("self-evaluation is not allowed")
	ErrRaterNotFound    = errors.New("rater not found")
	ErrTargetNotFound   = errors.New("target not found or inactive")
	ErrEventInactive    = errors.New("event not found or inactive")
	ErrNoActiveCriteria = errors.New("no active criteria")
	ErrUnknownCriterion = errors.New("unknown criterion")
)

func wrapKind(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}

// fromStore maps repository misses to ErrNotFound and passes other errors
// through.
func fromStore(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrapKind(ErrNotFound, err)
	}
	return err
}

// Kind returns the error kind err wraps, or nil for internal errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrPrecondition, ErrNotFound} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
