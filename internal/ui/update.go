package ui

import (
	"fmt"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// Property enumerates the view properties a live update may target. The
// finite set replaces name-keyed dynamic dispatch: each property has a
// typed handler.
type Property int

// Updatable view properties.
const (
	PropText Property = iota
	PropValue
	PropOptions
	PropSelectedItems
	PropSelectedItem
)

// ParseProperty maps a wire property name to its enum value.
func ParseProperty(name string) (Property, bool) {
	switch name {
	case "text":
		return PropText, true
	case "value":
		return PropValue, true
	case "options":
		return PropOptions, true
	case "selectedItems":
		return PropSelectedItems, true
	case "selectedItem":
		return PropSelectedItem, true
	default:
		return 0, false
	}
}

// String returns the wire name of the property.
func (p Property) String() string {
	switch p {
	case PropText:
		return "text"
	case PropValue:
		return "value"
	case PropOptions:
		return "options"
	case PropSelectedItems:
		return "selectedItems"
	case PropSelectedItem:
		return "selectedItem"
	default:
		return "unknown"
	}
}

// Apply updates one property of one live component, writing through to the
// view tree node so the rendered layout stays current. Unknown components
// and mistyped values are reported to the caller, which logs and ignores
// them; a failed view update never takes anything down.
func (c *Compiled) Apply(componentID string, prop Property, value codec.Value) error {
	comp, ok := c.Components[componentID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, componentID)
	}

	switch prop {
	case PropText:
		s, ok := codec.AsString(value)
		if !ok {
			return fmt.Errorf("%w: text wants a string, got %T", ErrBadPropertyValue, value)
		}
		comp.Text = s
		comp.node.Set("text", codec.String(s))

	case PropValue:
		switch value.(type) {
		case codec.String, codec.Number, codec.Bool:
			comp.Value = value
			comp.node.Set("value", value)
		default:
			return fmt.Errorf("%w: value wants a scalar, got %T", ErrBadPropertyValue, value)
		}

	case PropOptions:
		opts, err := parseOptions(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadPropertyValue, err)
		}
		comp.Options = opts
		comp.node.Set("options", optionsValue(opts))

	case PropSelectedItems:
		a, ok := codec.AsArray(value)
		if !ok {
			return fmt.Errorf("%w: selectedItems wants a list, got %T", ErrBadPropertyValue, value)
		}
		comp.Value = a
		comp.node.Set("selectedItems", a)

	case PropSelectedItem:
		s, ok := codec.AsString(value)
		if !ok {
			return fmt.Errorf("%w: selectedItem wants a string, got %T", ErrBadPropertyValue, value)
		}
		comp.Value = codec.String(s)
		comp.node.Set("selectedItem", codec.String(s))

	default:
		return fmt.Errorf("%w: %d", ErrUnknownProperty, prop)
	}

	return nil
}
