// Package quickapp holds the emulated device model: typed device
// descriptors, the built-in type templates, the device registry and the
// factory that turns script content into registered devices.
//
// The registry is the single owner of device descriptors and of the
// monotonic id counter. Devices created without an explicit id get
// strictly increasing ids starting from the configured first id; an
// explicit id is honored as given and bumps the counter past it so later
// automatic ids never collide.
//
// The factory runs the header parser over script content and decides the
// device's mode. Offline beats proxy when a script asks for both. A proxy
// request negotiates with the remote controller: an existing mirror of the
// same name is adopted and its stale parts (interfaces, variables, UI) are
// pushed asynchronously after a short delay; a missing mirror is created.
// Remote trouble never aborts a load, the device simply runs locally.
//
// Templates are embedded at build time and instantiated by deep copy, so
// devices never share property structure with the template registry.
package quickapp
