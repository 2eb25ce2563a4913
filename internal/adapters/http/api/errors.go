package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrMissingRater = errors.New("missing or invalid X-Rater-ID header")
	ErrInvalidID    = errors.New("invalid id in path")
)
