package config

import "errors"

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidSampling = errors.New("sample_every must be positive")
	ErrInvalidFrame    = errors.New("invalid video frame size")
	ErrInvalidExtent   = errors.New("invalid map extent")
	ErrInvalidLogLevel = errors.New("invalid log level")
)
