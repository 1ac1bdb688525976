package common

import (
	"errors"
)

// Common error constants
var (
	// ErrInvalidConfig is returned when an invalid configuration is provided
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedSource is returned when an unsupported blacklist source is specified
	ErrUnsupportedSource = errors.New("unsupported blacklist source")

	// ErrCollectionFailed is returned when a collection run fails
	ErrCollectionFailed = errors.New("collection run failed")

	// ErrNotImplemented is returned when a method is not implemented
	ErrNotImplemented = errors.New("method not implemented")
)
