package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// idKeys maps the declaration key that names an element to its type. The
// presence of exactly one of these keys decides what the element is.
var idKeys = []struct {
	key string
	typ ElementType
}{
	{"label", TypeLabel},
	{"button", TypeButton},
	{"switch", TypeSwitch},
	{"slider", TypeSlider},
	{"select", TypeSelect},
	{"multi", TypeMulti},
}

// ParseElement turns one UI directive literal into an element. A keyed
// literal declares a single element; a list literal declares a horizontal
// row of buttons or switches.
func ParseElement(v codec.Value) (Element, error) {
	switch t := v.(type) {
	case *codec.Map:
		return parseSingle(t)
	case *codec.Array:
		row := Element{Type: TypeButton, Visible: true}
		for i := 0; i < t.Len(); i++ {
			m, ok := codec.AsMap(t.At(i))
			if !ok {
				return Element{}, fmt.Errorf("%w: row entry %d is not a table", ErrInvalidElement, i+1)
			}
			el, err := parseSingle(m)
			if err != nil {
				return Element{}, err
			}
			if el.Type != TypeButton && el.Type != TypeSwitch {
				return Element{}, fmt.Errorf("%w: row element %q must be a button or switch", ErrInvalidElement, el.ID)
			}
			row.Items = append(row.Items, el)
		}
		if len(row.Items) == 0 {
			return Element{}, fmt.Errorf("%w: empty element row", ErrInvalidElement)
		}
		return row, nil
	default:
		return Element{}, fmt.Errorf("%w: element literal must be a table", ErrInvalidElement)
	}
}

func parseSingle(m *codec.Map) (Element, error) {
	el := Element{Visible: true}

	found := false
	for _, ik := range idKeys {
		if v, ok := m.Get(ik.key); ok {
			id, ok := codec.AsString(v)
			if !ok || id == "" {
				return Element{}, fmt.Errorf("%w: %s id must be a non-empty string", ErrInvalidElement, ik.key)
			}
			if found {
				return Element{}, fmt.Errorf("%w: element %q declares more than one kind", ErrInvalidElement, id)
			}
			el.Type = ik.typ
			el.ID = id
			found = true
		}
	}
	if !found {
		return Element{}, fmt.Errorf("%w: no element kind key present", ErrInvalidElement)
	}

	el.Text = codec.GetString(m, "text", "")
	el.Visible = codec.GetBool(m, "visible", true)

	if v, ok := m.Get("value"); ok {
		el.Value = v
	}

	if el.Type == TypeSlider {
		el.Min = numericField(m, "min", 0)
		el.Max = numericField(m, "max", 100)
		el.Step = numericField(m, "step", 1)
	}

	if v, ok := m.Get("options"); ok {
		opts, err := parseOptions(v)
		if err != nil {
			return Element{}, fmt.Errorf("%w: element %q: %v", ErrInvalidElement, el.ID, err)
		}
		el.Options = opts
	}

	// Event bindings in declaration order: any "on*" key whose value is a
	// string names the script method to invoke.
	for _, key := range m.Keys() {
		if !strings.HasPrefix(key, "on") {
			continue
		}
		v, _ := m.Get(key)
		method, ok := codec.AsString(v)
		if !ok {
			return Element{}, fmt.Errorf("%w: element %q binding %s must name a method", ErrInvalidElement, el.ID, key)
		}
		el.Bindings = append(el.Bindings, Binding{Event: key, Method: method})
	}

	return el, nil
}

// numericField reads a number that may be declared either as a number or
// as a numeric string, the two forms scripts use interchangeably.
func numericField(m *codec.Map, key string, fallback int) int {
	v, ok := m.Get(key)
	if !ok {
		return fallback
	}
	if n, ok := codec.AsInt(v); ok {
		return n
	}
	if s, ok := codec.AsString(v); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func parseOptions(v codec.Value) ([]Option, error) {
	arr, ok := codec.AsArray(v)
	if !ok {
		return nil, fmt.Errorf("options must be a list")
	}
	opts := make([]Option, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		switch o := arr.At(i).(type) {
		case codec.String:
			opts = append(opts, Option{Text: string(o), Value: string(o)})
		case *codec.Map:
			text := codec.GetString(o, "text", "")
			value := codec.GetString(o, "value", text)
			opts = append(opts, Option{Text: text, Value: value})
		default:
			return nil, fmt.Errorf("option %d has unsupported shape", i+1)
		}
	}
	return opts, nil
}
