package codec

import "errors"

// Sentinel errors for codec operations.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, codec.ErrEncode) {
//	    // encoding failed; the value contained an unsupported kind
//	}
var (
	// ErrEncode is returned when a value cannot be encoded. It is fatal to
	// the single Encode call only, never to the process.
	ErrEncode = errors.New("codec: encode failed")

	// ErrDecode is returned when input is not valid JSON.
	ErrDecode = errors.New("codec: decode failed")
)
