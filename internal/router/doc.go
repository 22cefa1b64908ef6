// Package router decides, per API call, whether the emulator answers
// locally or the call goes to the real controller.
//
// Dispatch tries the registered route patterns in order; the first match
// wins. A handler that discovers the call is not actually its business
// returns StatusDeclined, an internal signal that never reaches any
// transport. Declined and unmatched calls forward upstream through the
// configured forwarder, or answer 408 immediately when offline. No
// network attempt is ever made in offline mode.
//
// The built-in route set in handlers.go emulates the controller surface
// scripts expect: devices, plugin operations, global variables, settings
// and the refresh-states poll.
package router
