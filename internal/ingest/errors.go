package ingest

import "errors"

var (
	ErrMissingColumn     = errors.New("missing column")
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrNoInput           = errors.New("no input files")
)
