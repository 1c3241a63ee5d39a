package contracts

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidWindow is returned for empty or inverted windows
	ErrInvalidWindow = errors.New("invalid window")

	// ErrInvalidResolution is returned for unknown resolution codes
	ErrInvalidResolution = errors.New("invalid resolution")
)
