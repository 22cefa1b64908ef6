// Package proxy implements the remote side of the emulation: the REST
// client that forwards unhandled API calls to the live controller and
// manages remote mirror devices, the restricted-call path that goes
// through a synchronous bridge instead of direct transport, and the
// refreshStates poller that mirrors the controller's event feed into the
// local store.
//
// Failure mapping is uniform across the package: transport trouble and
// offline mode become status 408, a malformed or refusing remote becomes
// status 501. Neither ever aborts the caller.
package proxy
