package catalog

import "errors"

// Package errors.
var (
	// ErrUnknownCodec is returned when a codec index has no definition.
	ErrUnknownCodec = errors.New("catalog: unknown codec index")

	// ErrBackendInit is returned when the codec backend fails to initialize
	// a codec. The backend error is wrapped alongside.
	ErrBackendInit = errors.New("catalog: codec backend initialization failed")

	// ErrDuplicateCodec is returned when two definitions share an index.
	ErrDuplicateCodec = errors.New("catalog: duplicate codec index")
)
