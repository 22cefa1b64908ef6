package ui

import (
	"fmt"
	"strconv"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// FromView reconstructs an element list from a previously serialized view
// tree and callback table. It is the path used when a child device is
// instantiated from a UI snapshot instead of source directives.
func FromView(view *codec.Map, callbacks *codec.Array) ([]Element, error) {
	rows, err := layoutRows(view)
	if err != nil {
		return nil, err
	}

	var elements []Element
	for i := 0; i < rows.Len(); i++ {
		row, ok := codec.AsMap(rows.At(i))
		if !ok {
			return nil, fmt.Errorf("%w: view row %d is not an object", ErrInvalidElement, i+1)
		}
		compsVal, _ := row.Get("components")
		comps, ok := codec.AsArray(compsVal)
		if !ok || comps.Len() == 0 {
			continue
		}

		members := make([]Element, 0, comps.Len())
		for j := 0; j < comps.Len(); j++ {
			node, ok := codec.AsMap(comps.At(j))
			if !ok {
				return nil, fmt.Errorf("%w: view component is not an object", ErrInvalidElement)
			}
			el, err := elementFromNode(node, callbacks)
			if err != nil {
				return nil, err
			}
			members = append(members, el)
		}

		if len(members) == 1 {
			elements = append(elements, members[0])
		} else {
			elements = append(elements, Element{Type: TypeButton, Visible: true, Items: members})
		}
	}
	return elements, nil
}

// layoutRows digs the row list out of the $jason/body/sections/items nesting.
func layoutRows(view *codec.Map) (*codec.Array, error) {
	path := []string{"$jason", "body", "sections"}
	cur := view
	for _, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return nil, fmt.Errorf("%w: view tree missing %q", ErrInvalidElement, key)
		}
		m, ok := codec.AsMap(v)
		if !ok {
			return nil, fmt.Errorf("%w: view tree node %q is not an object", ErrInvalidElement, key)
		}
		cur = m
	}
	itemsVal, ok := cur.Get("items")
	if !ok {
		return codec.NewArray(), nil
	}
	items, ok := codec.AsArray(itemsVal)
	if !ok {
		return nil, fmt.Errorf("%w: view tree items is not a list", ErrInvalidElement)
	}
	return items, nil
}

func elementFromNode(node *codec.Map, callbacks *codec.Array) (Element, error) {
	id := codec.GetString(node, "name", "")
	if id == "" {
		return Element{}, fmt.Errorf("%w: view component without a name", ErrInvalidElement)
	}

	typ, err := typeFromName(codec.GetString(node, "type", ""))
	if err != nil {
		return Element{}, fmt.Errorf("%w: component %q: %v", ErrInvalidElement, id, err)
	}

	el := Element{
		Type:    typ,
		ID:      id,
		Text:    codec.GetString(node, "text", ""),
		Visible: codec.GetBool(node, "visible", true),
	}
	if v, ok := node.Get("value"); ok {
		el.Value = v
	}

	if typ == TypeSlider {
		el.Min = atoiField(node, "min", 0)
		el.Max = atoiField(node, "max", 100)
		el.Step = atoiField(node, "step", 1)
	}
	if typ == TypeSelect || typ == TypeMulti {
		if v, ok := node.Get("options"); ok {
			opts, err := parseOptions(v)
			if err != nil {
				return Element{}, fmt.Errorf("%w: component %q: %v", ErrInvalidElement, id, err)
			}
			el.Options = opts
		}
		if typ == TypeSelect {
			if v, ok := node.Get("selectedItem"); ok {
				el.Value = v
			}
		} else if v, ok := node.Get("selectedItems"); ok {
			el.Value = v
		}
	}

	// Bindings come back from the callback table, preserving its order.
	if callbacks != nil {
		for i := 0; i < callbacks.Len(); i++ {
			entry, ok := codec.AsMap(callbacks.At(i))
			if !ok {
				continue
			}
			if codec.GetString(entry, "name", "") != id {
				continue
			}
			el.Bindings = append(el.Bindings, Binding{
				Event:  codec.GetString(entry, "eventType", ""),
				Method: codec.GetString(entry, "callback", ""),
			})
		}
	}

	return el, nil
}

func typeFromName(name string) (ElementType, error) {
	switch name {
	case "label":
		return TypeLabel, nil
	case "button":
		return TypeButton, nil
	case "switch":
		return TypeSwitch, nil
	case "slider":
		return TypeSlider, nil
	case "select":
		return TypeSelect, nil
	case "multi":
		return TypeMulti, nil
	default:
		return 0, fmt.Errorf("unsupported component type %q", name)
	}
}

func atoiField(m *codec.Map, key string, fallback int) int {
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
