package sim

import "errors"

var (
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	ErrNegativePeriod     = errors.New("period must not be negative")
	ErrInvalidExposure    = errors.New("exposure distance must be a non-negative number")
	ErrNegativeCohort     = errors.New("initial infected count must not be negative")
	ErrAmbiguousCohort    = errors.New("set either an initial infected count or an id list, not both")
	ErrInvalidSampling    = errors.New("agent sampling interval must be positive")
)
