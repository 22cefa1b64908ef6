// Package codec provides the deterministic JSON codec the wire protocol
// depends on for byte-stable output.
//
// Values are an explicit tagged model (Null, Bool, Number, String, Array,
// Map) instead of ad hoc runtime inspection, so an empty array and an empty
// object stay distinguishable and encoding is unambiguous.
//
// # Determinism
//
// Map keys encode ordered by a fixed domain-priority list (type, device,
// id, name, value, property, properties) and then lexicographically.
// Encoding the same unmodified value twice yields byte-identical output,
// which the remote-sync diffing relies on.
//
// # Cycle safety
//
// Containers already on the current encode call stack emit a fixed
// recursion marker instead of recursing, so self-referential structures
// always terminate.
//
// # Usage
//
//	m := codec.NewMap().Set("id", codec.Number(42)).Set("type", codec.String("com.fibaro.binarySwitch"))
//	s, err := codec.Encode(m)
//	// {"type":"com.fibaro.binarySwitch","id":42}
package codec
