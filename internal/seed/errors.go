package seed

import "errors"

var (
	// ErrInvalidFixture marks a fixture that cannot be decoded or references
	// unknown participants, events or criteria.
	ErrInvalidFixture = errors.New("invalid fixture")
)
