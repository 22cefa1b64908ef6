// Package headers turns per-script directive comments into a structured
// configuration record.
//
// Directives are line-anchored comments of the form
//
//	--%%key:value
//
// (or the legacy --%%key=value form, normalized by a compatibility rewrite
// before scanning). Each recognized key has a dedicated handler that
// validates and stores a typed value; unknown keys are reported and
// ignored.
//
// Directive values are parsed with a small explicit value-literal grammar
// (booleans, numbers, strings, nested array/map table literals) via a
// hand-written recursive-descent parser. Nothing in a header is ever
// executed.
//
// The parser is pure: Parse returns a HeaderSet and touches no external
// state. File directives read the filesystem to resolve paths, but resolve
// only; content loading belongs to the caller.
package headers
