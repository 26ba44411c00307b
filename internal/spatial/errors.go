package spatial

import "errors"

var (
	ErrInvalidPoint       = errors.New("invalid point")
	ErrEmptyProjection    = errors.New("projection definition is required")
	ErrUnexpectedGeometry = errors.New("projection returned a non-point geometry")
)
