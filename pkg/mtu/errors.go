package mtu

import "errors"

var (
	// ErrUnknownStream is returned when a handle has no MTU entry.
	ErrUnknownStream = errors.New("mtu: unknown stream")

	// ErrInvalidDirection is returned when a direction is neither source nor sink.
	ErrInvalidDirection = errors.New("mtu: invalid direction")
)
