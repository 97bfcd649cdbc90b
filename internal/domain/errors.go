package domain

import "errors"

// Input validation errors.
var (
	// ErrInvalidBar indicates a bar with non-finite or non-positive values.
	ErrInvalidBar = errors.New("invalid bar")

	// ErrStaleBar indicates a bar older than the latest processed bar.
	ErrStaleBar = errors.New("stale bar")
)
