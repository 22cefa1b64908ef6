package headers

import "errors"

// Sentinel errors for header parsing.
//
// All three are fatal at load time: a script that trips one cannot run.
var (
	// ErrValidation is returned when a typed directive carries a literal of
	// the wrong type, or a directive value cannot be parsed at all.
	ErrValidation = errors.New("headers: directive validation failed")

	// ErrFileNotFound is returned when a file directive names a path that
	// resolves neither directly nor through the library search paths.
	ErrFileNotFound = errors.New("headers: file not found")

	// ErrLiteral is returned when directive text is not a valid value
	// literal (boolean, number, string or nested table).
	ErrLiteral = errors.New("headers: invalid literal")
)
