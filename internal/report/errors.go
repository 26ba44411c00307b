package report

import "errors"

var (
	ErrNoResults = errors.New("no results")
	ErrNoRows    = errors.New("no metrics rows")
)
