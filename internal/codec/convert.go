package codec

import "fmt"

// From builds a Value from native Go data. Supported inputs: nil, bool,
// string, int/int64/float64, []any, map[string]any (key order of Go maps is
// not preserved; build a *Map directly when order matters), and anything
// already a Value.
func From(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Number(t), nil
	case int64:
		return Number(t), nil
	case float64:
		return Number(t), nil
	case []any:
		a := NewArray()
		for _, item := range t {
			cv, err := From(item)
			if err != nil {
				return nil, err
			}
			a.Append(cv)
		}
		return a, nil
	case map[string]any:
		m := NewMap()
		for k, item := range t {
			cv, err := From(item)
			if err != nil {
				return nil, err
			}
			m.Set(k, cv)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %T", ErrEncode, v)
	}
}

// AsString returns the string payload of v, if it is one.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsInt returns the numeric payload of v truncated to int, if v is a number.
func AsInt(v Value) (int, bool) {
	n, ok := v.(Number)
	return int(n), ok
}

// AsFloat returns the numeric payload of v, if it is a number.
func AsFloat(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsBool returns the boolean payload of v, if it is one.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsMap returns v as a keyed container, if it is one.
func AsMap(v Value) (*Map, bool) {
	m, ok := v.(*Map)
	return m, ok
}

// AsArray returns v as an array container, if it is one.
func AsArray(v Value) (*Array, bool) {
	a, ok := v.(*Array)
	return a, ok
}

// IsNull reports whether v is the null sentinel or a nil interface.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// GetString looks up key in m and returns its string payload, or fallback
// when the key is absent or not a string.
func GetString(m *Map, key, fallback string) string {
	if v, ok := m.Get(key); ok {
		if s, ok := AsString(v); ok {
			return s
		}
	}
	return fallback
}

// GetInt looks up key in m and returns its numeric payload, or fallback.
func GetInt(m *Map, key string, fallback int) int {
	if v, ok := m.Get(key); ok {
		if n, ok := AsInt(v); ok {
			return n
		}
	}
	return fallback
}

// GetBool looks up key in m and returns its boolean payload, or fallback.
func GetBool(m *Map, key string, fallback bool) bool {
	if v, ok := m.Get(key); ok {
		if b, ok := AsBool(v); ok {
			return b
		}
	}
	return fallback
}
