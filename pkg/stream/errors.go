package stream

import "errors"

// Stream package errors.
var (
	// ErrStreamNotFound is returned when a handle has no entry.
	ErrStreamNotFound = errors.New("stream: stream not found")

	// ErrRegistryFull is returned when no more streams can be tracked.
	ErrRegistryFull = errors.New("stream: registry full")

	// ErrInvalidTransition is returned when the lifecycle forbids a change.
	ErrInvalidTransition = errors.New("stream: invalid state transition")

	// ErrNotConfigured is returned when opening a stream without an accepted
	// configuration.
	ErrNotConfigured = errors.New("stream: stream not configured")

	// ErrEmptyConfig is returned when a configuration has no codec element.
	ErrEmptyConfig = errors.New("stream: empty codec configuration")
)
