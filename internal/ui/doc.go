// Package ui compiles declarative UI element lists into a renderable view
// tree, a callback-dispatch table and a live component map.
//
// An element list comes either from script header directives (parsed by the
// headers package) or from a previously serialized view snapshot
// (FromView). Compilation preserves declaration order throughout: elements
// become view rows top to bottom and event bindings register in the order
// declared.
//
// Live view updates go through the Property enum and Compiled.Apply, which
// writes through to the view tree so a later serialization reflects every
// update applied so far.
package ui
