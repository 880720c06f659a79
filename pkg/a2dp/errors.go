package a2dp

import "errors"

// Package errors.
var (
	// ErrElementTooShort is returned when an element is shorter than its header.
	ErrElementTooShort = errors.New("a2dp: element too short")

	// ErrLengthMismatch is returned when the LOSC byte disagrees with the buffer.
	ErrLengthMismatch = errors.New("a2dp: element length mismatch")

	// ErrProtectCount is returned when a content protection list holds fewer
	// elements than announced.
	ErrProtectCount = errors.New("a2dp: content protection count mismatch")
)
