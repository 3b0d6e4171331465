package util

import "errors"

// Sentinel errors shared across packages
var (
	// ErrNotFound indicates a referenced entity or file does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a malformed command argument
	ErrInvalidArgument = errors.New("invalid argument")
)
