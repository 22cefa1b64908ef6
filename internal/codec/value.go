package codec

import "sort"

// Kind identifies the variant a Value carries.
type Kind int

// Value kinds. The tagged model removes any need for runtime inspection to
// tell an empty array from an empty object: the tag decides.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindMap
)

// Value is a JSON-compatible value. Scalars are immutable value types;
// Array and Map are mutable reference types so shared substructures (and
// cycles) keep their identity across the tree.
type Value interface {
	Kind() Kind
}

// Null is the explicit null sentinel. Encoding a Null (or a nil Value)
// emits the literal null.
type Null struct{}

// Kind returns KindNull.
func (Null) Kind() Kind { return KindNull }

// Bool is a boolean value.
type Bool bool

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }

// Number is a numeric value. Whole numbers encode without a fractional part.
type Number float64

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

// String is a string value.
type String string

// Kind returns KindString.
func (String) Kind() Kind { return KindString }

// Array is an ordered list of values. The zero value is an empty array;
// an empty Array encodes as [] where an empty Map encodes as {}.
type Array struct {
	items []Value
}

// NewArray returns an array-tagged container holding the given items.
func NewArray(items ...Value) *Array {
	return &Array{items: items}
}

// Kind returns KindArray.
func (*Array) Kind() Kind { return KindArray }

// Len returns the number of items.
func (a *Array) Len() int { return len(a.items) }

// At returns the item at index i.
func (a *Array) At(i int) Value { return a.items[i] }

// Append adds items to the end of the array.
func (a *Array) Append(items ...Value) {
	a.items = append(a.items, items...)
}

// Items returns the backing slice. Callers must not retain it across
// mutations of the array.
func (a *Array) Items() []Value { return a.items }

// Map is a keyed container that remembers insertion order. Lookups are by
// key; iteration order for callers is insertion order, while the encoder
// applies its own deterministic ordering.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty keyed container.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Kind returns KindMap.
func (*Map) Kind() Kind { return KindMap }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Set stores v under key, keeping the key's original position if it
// already exists.
func (m *Map) Set(key string, v Value) *Map {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Delete removes the entry for key, if present.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// keyPriority is the fixed domain ordering applied by the encoder: common
// wire fields surface before everything else, the rest sorts lexicographically.
var keyPriority = map[string]int{
	"type":       0,
	"device":     1,
	"id":         2,
	"name":       3,
	"value":      4,
	"property":   5,
	"properties": 6,
}

// sortedKeys returns the map keys in encoding order: priority-listed keys
// first (in list order), then the remainder lexicographically.
func (m *Map) sortedKeys() []string {
	keys := m.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		pi, iok := keyPriority[keys[i]]
		pj, jok := keyPriority[keys[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// Clone returns a deep copy of v. Scalars are shared (they are immutable);
// containers are copied recursively. Cyclic structures clone into cyclic
// copies rather than recursing forever.
func Clone(v Value) Value {
	return cloneValue(v, make(map[Value]Value))
}

func cloneValue(v Value, seen map[Value]Value) Value {
	switch t := v.(type) {
	case *Array:
		if c, ok := seen[v]; ok {
			return c
		}
		out := &Array{items: make([]Value, len(t.items))}
		seen[v] = out
		for i, item := range t.items {
			out.items[i] = cloneValue(item, seen)
		}
		return out
	case *Map:
		if c, ok := seen[v]; ok {
			return c
		}
		out := NewMap()
		seen[v] = out
		for _, k := range t.keys {
			out.Set(k, cloneValue(t.vals[k], seen))
		}
		return out
	default:
		return v
	}
}

// MakeArray returns an array-tagged view of v. An existing array is
// returned unchanged; a keyed container contributes its values in insertion
// order; null contributes nothing; a scalar becomes a single-element array.
// This mirrors tagging a table as an array before encoding, so an empty
// container round-trips as [] instead of {}.
func MakeArray(v Value) *Array {
	switch t := v.(type) {
	case nil:
		return &Array{}
	case Null:
		return &Array{}
	case *Array:
		return t
	case *Map:
		items := make([]Value, 0, t.Len())
		for _, k := range t.keys {
			items = append(items, t.vals[k])
		}
		return &Array{items: items}
	default:
		return &Array{items: []Value{v}}
	}
}
