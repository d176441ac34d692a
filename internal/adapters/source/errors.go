package source

import (
	"errors"
	"strings"
)

// Sentinel kinds for report retrieval errors.
var (
	ErrNotFound       = errors.New("report not found")
	ErrExhausted      = errors.New("no published report in fallback window")
	ErrUpstreamStatus = errors.New("unexpected upstream status")
)

// ExhaustedError is returned when every candidate date was not found.
type ExhaustedError struct {
	// Attempts lists the URLs tried, newest first.
	Attempts []string
	// Last is the not-found error of the final attempt.
	Last error
}

func (e *ExhaustedError) Error() string {
	return ErrExhausted.Error() + ": tried " + strings.Join(e.Attempts, ", ")
}

// Is matches ErrExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Unwrap returns the last not-found error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
