package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// recursionMarker is emitted in place of a container that is already on the
// current encode call stack. It guarantees termination on self-referential
// structures at the cost of that substructure's content.
const recursionMarker = `"<recursive>"`

// Encode renders v as a JSON string with deterministic output: map keys are
// ordered by a fixed priority list then lexicographically, so encoding the
// same unmodified value twice is byte-identical.
//
// Cyclic structures encode to a finite string containing a recursion marker.
// Values of kinds the codec does not know fail with ErrEncode.
func Encode(v Value) (string, error) {
	var sb strings.Builder
	e := encoder{active: make(map[Value]struct{})}
	if err := e.encode(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// encoder tracks the containers currently on the encode call stack, keyed
// by identity. Entries are removed on return, so a container reachable
// twice along different paths still encodes fully; only a true cycle hits
// the marker.
type encoder struct {
	active map[Value]struct{}
}

func (e *encoder) encode(sb *strings.Builder, v Value) error {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case Null:
		sb.WriteString("null")
	case Bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Number:
		sb.WriteString(formatNumber(float64(t)))
	case String:
		encodeString(sb, string(t))
	case *Array:
		if _, on := e.active[v]; on {
			sb.WriteString(recursionMarker)
			return nil
		}
		e.active[v] = struct{}{}
		defer delete(e.active, v)

		sb.WriteByte('[')
		for i, item := range t.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := e.encode(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *Map:
		if _, on := e.active[v]; on {
			sb.WriteString(recursionMarker)
			return nil
		}
		e.active[v] = struct{}{}
		defer delete(e.active, v)

		sb.WriteByte('{')
		for i, key := range t.sortedKeys() {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeString(sb, key)
			sb.WriteByte(':')
			if err := e.encode(sb, t.vals[key]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return fmt.Errorf("%w: unsupported value kind %T", ErrEncode, v)
	}
	return nil
}

// encodeString quotes s, escaping backslash and double quote only.
func encodeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
}

// formatNumber uses default numeric formatting: whole numbers print without
// a fractional part, everything else uses the shortest representation.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
