package ui

import "errors"

// Sentinel errors for UI compilation and live updates.
var (
	// ErrInvalidElement is returned when a declared element cannot be
	// understood (missing id key, wrong literal shape).
	ErrInvalidElement = errors.New("ui: invalid element")

	// ErrUnknownComponent is returned when a view update names a component
	// id that does not exist in the compiled view.
	ErrUnknownComponent = errors.New("ui: unknown component")

	// ErrUnknownProperty is returned when a view update names a property
	// outside the supported set.
	ErrUnknownProperty = errors.New("ui: unknown property")

	// ErrBadPropertyValue is returned when a view update carries a value of
	// the wrong type for the named property.
	ErrBadPropertyValue = errors.New("ui: bad property value")
)
