package selector

import "errors"

var (
	// ErrNoCatalog is returned when a Selector is created without a catalog.
	ErrNoCatalog = errors.New("selector: catalog is required")

	// ErrNoRegistry is returned when a Selector is created without a registry.
	ErrNoRegistry = errors.New("selector: registry is required")

	// ErrNoProtect is returned when a Selector is created without a
	// content protection manager.
	ErrNoProtect = errors.New("selector: protect manager is required")
)
