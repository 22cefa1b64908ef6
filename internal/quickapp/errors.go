package quickapp

import "errors"

// Domain errors for the quickapp package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, quickapp.ErrUnknownType) {
//	    // the script requested a device type outside the template registry
//	}
var (
	// ErrUnknownType is returned when a requested device type does not
	// resolve in the template registry. Fatal at load time.
	ErrUnknownType = errors.New("quickapp: unknown device type")

	// ErrDeviceNotFound is returned when a device id does not exist.
	ErrDeviceNotFound = errors.New("quickapp: device not found")

	// ErrBadTemplates is returned when the embedded template data cannot
	// be parsed. It indicates a build problem, not a runtime condition.
	ErrBadTemplates = errors.New("quickapp: bad template data")

	// ErrProxyFailed is returned when the remote mirror for a proxied
	// device could not be created or queried.
	ErrProxyFailed = errors.New("quickapp: proxy setup failed")
)
