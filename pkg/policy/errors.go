package policy

import "errors"

// Package-level errors.
var (
	// ErrInvalidLocalType is returned when LocalType is neither source nor sink.
	ErrInvalidLocalType = errors.New("policy: invalid local endpoint type")

	// ErrProtectionRequired is returned when content protection is required
	// but not enabled.
	ErrProtectionRequired = errors.New("policy: content protection required but not enabled")

	// ErrInvalidCopyMode is returned when DefaultCopyMode is out of range.
	ErrInvalidCopyMode = errors.New("policy: invalid default copy mode")

	// ErrInvalidMaxStreams is returned when MaxStreams is negative.
	ErrInvalidMaxStreams = errors.New("policy: max streams must not be negative")
)
