package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrEmpty         = errors.New("empty report")
	ErrMalformed     = errors.New("malformed report")
	ErrMissingColumn = errors.New("missing column")
)
