package config

import "errors"

// ErrInvalidConfig marks a configuration rejected by Validate; ErrLoadConfig
// marks a file or environment source that could not be read.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
