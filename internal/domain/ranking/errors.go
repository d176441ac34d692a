package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrInvalidLimit = errors.New("invalid ranking limit")
	ErrRender       = errors.New("render table body failed")
)
