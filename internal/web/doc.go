// Package web provides the HTTP and WebSocket front of the emulator.
//
// Every inbound /api call is translated into a dispatch-router call:
// method, trimmed path and codec-decoded body in, codec-encoded value and
// status out. The server itself holds no API logic; which calls the
// emulator answers and which go to the remote controller is entirely the
// dispatch router's decision.
//
// The WebSocket hub at /ws pushes every refresh-states event to all
// connected clients as it is recorded, for clients that prefer push over
// polling GET /api/refreshStates.
package web
