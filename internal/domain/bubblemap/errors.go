package bubblemap

import "errors"

// ErrRender is returned when the map document cannot be produced.
var ErrRender = errors.New("render map failed")
