package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrRender    = errors.New("dashboard render failed")
	ErrDashboard = errors.New("dashboard unavailable")
)
