package proxy

import "errors"

var (
	// ErrRemote indicates the remote controller rejected or failed a call.
	ErrRemote = errors.New("proxy: remote call failed")

	// ErrBadResponse indicates the remote answered with a body the codec
	// could not decode or with an unexpected shape.
	ErrBadResponse = errors.New("proxy: malformed remote response")
)
