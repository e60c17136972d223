package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNoHome indicates the user's home directory could not be determined
	ErrNoHome = errors.New("cannot determine home directory")

	// ErrInvalidArgument indicates a bad command-line argument
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
