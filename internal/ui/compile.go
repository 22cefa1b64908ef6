package ui

import (
	"fmt"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// Compile walks the ordered element list and produces the renderable view
// tree, the callback-dispatch table and the live component map. Declaration
// order is preserved: elements become view rows top to bottom, bindings
// register in the order they were declared.
//
// An empty element list produces the minimal empty-body layout with no
// callbacks and no components.
func Compile(title string, elements []Element) (*Compiled, error) {
	c := &Compiled{
		Components: make(map[string]*Component),
		elements:   elements,
		title:      title,
	}

	if len(elements) == 0 {
		c.ViewLayout = EmptyLayout(title)
		return c, nil
	}

	rows := codec.NewArray()
	for _, el := range elements {
		row, err := c.compileRow(el)
		if err != nil {
			return nil, err
		}
		rows.Append(row)
	}

	c.ViewLayout = buildLayout(title, rows)
	return c, nil
}

// compileRow turns one element into a view row, registering components and
// callbacks as it goes.
func (c *Compiled) compileRow(el Element) (*codec.Map, error) {
	if len(el.Items) > 0 {
		comps := codec.NewArray()
		for _, item := range el.Items {
			node, err := c.compileComponent(item, "0.50")
			if err != nil {
				return nil, err
			}
			comps.Append(node)
		}
		return rowNode(comps, "horizontal"), nil
	}

	node, err := c.compileComponent(el, "1.2")
	if err != nil {
		return nil, err
	}
	return rowNode(codec.NewArray(node), "vertical"), nil
}

// compileComponent builds the layout node for one element, inserts its live
// state record into the component map and registers its bindings.
func (c *Compiled) compileComponent(el Element, weight string) (*codec.Map, error) {
	if _, dup := c.Components[el.ID]; dup {
		return nil, fmt.Errorf("%w: duplicate component id %q", ErrInvalidElement, el.ID)
	}

	node := codec.NewMap()
	node.Set("name", codec.String(el.ID))
	node.Set("type", codec.String(el.Type.String()))
	node.Set("style", styleNode(weight))
	node.Set("text", codec.String(el.Text))
	node.Set("visible", codec.Bool(el.Visible))

	switch el.Type {
	case TypeSwitch:
		node.Set("value", switchValue(el.Value))
	case TypeSlider:
		node.Set("min", codec.String(itoa(el.Min)))
		node.Set("max", codec.String(itoa(el.Max)))
		node.Set("step", codec.String(itoa(el.Step)))
		node.Set("value", sliderValue(el.Value))
	case TypeSelect:
		node.Set("options", optionsValue(el.Options))
		node.Set("selectedItem", selectedValue(el.Value))
	case TypeMulti:
		node.Set("options", optionsValue(el.Options))
		node.Set("selectedItems", selectedItemsValue(el.Value))
	}

	comp := &Component{
		ID:      el.ID,
		Type:    el.Type,
		Text:    el.Text,
		Visible: el.Visible,
		Value:   el.Value,
		Options: el.Options,
		node:    node,
	}
	c.Components[el.ID] = comp

	for _, b := range el.Bindings {
		c.Callbacks = append(c.Callbacks, Callback{
			Component: el.ID,
			Event:     b.Event,
			Method:    b.Method,
		})
	}

	return node, nil
}

// Extend merges additional elements ahead of the previously compiled ones
// and recompiles the view, without discarding existing component state.
// It is used to inject platform-default elements per device type.
func (c *Compiled) Extend(elements []Element) (*Compiled, error) {
	combined := make([]Element, 0, len(elements)+len(c.elements))
	combined = append(combined, elements...)
	combined = append(combined, c.elements...)

	next, err := Compile(c.title, combined)
	if err != nil {
		return nil, err
	}

	// Carry live state across: a component that already existed keeps its
	// current text/value rather than resetting to the declaration.
	for id, old := range c.Components {
		if fresh, ok := next.Components[id]; ok {
			fresh.Text = old.Text
			fresh.Visible = old.Visible
			fresh.Value = old.Value
			fresh.Options = old.Options
			fresh.node.Set("text", codec.String(old.Text))
			fresh.node.Set("visible", codec.Bool(old.Visible))
			if old.Value != nil {
				fresh.node.Set("value", old.Value)
			}
		}
	}

	return next, nil
}

// Callback resolves the script method bound to (component, event).
func (c *Compiled) Callback(component, event string) (string, bool) {
	for _, cb := range c.Callbacks {
		if cb.Component == component && cb.Event == event {
			return cb.Method, true
		}
	}
	return "", false
}

// CallbacksValue renders the callback table in wire form: an ordered list
// of {callback, eventType, name} objects.
func (c *Compiled) CallbacksValue() *codec.Array {
	out := codec.NewArray()
	for _, cb := range c.Callbacks {
		entry := codec.NewMap()
		entry.Set("callback", codec.String(cb.Method))
		entry.Set("eventType", codec.String(cb.Event))
		entry.Set("name", codec.String(cb.Component))
		out.Append(entry)
	}
	return out
}

// Elements returns the compiled declaration list.
func (c *Compiled) Elements() []Element { return c.elements }

// EmptyLayout returns the minimal empty-body view tree used when a script
// declares no UI.
func EmptyLayout(title string) *codec.Map {
	return buildLayout(title, codec.NewArray())
}

func buildLayout(title string, rows *codec.Array) *codec.Map {
	header := codec.NewMap()
	header.Set("style", styleNode("0"))
	header.Set("title", codec.String(title))

	sections := codec.NewMap()
	sections.Set("items", rows)

	body := codec.NewMap()
	body.Set("header", header)
	body.Set("sections", sections)

	head := codec.NewMap()
	head.Set("title", codec.String(title))

	jason := codec.NewMap()
	jason.Set("body", body)
	jason.Set("head", head)

	layout := codec.NewMap()
	layout.Set("$jason", jason)
	return layout
}

func rowNode(components *codec.Array, orientation string) *codec.Map {
	row := codec.NewMap()
	row.Set("components", components)
	row.Set("style", styleNode("1.2"))
	row.Set("type", codec.String(orientation))
	return row
}

func styleNode(weight string) *codec.Map {
	style := codec.NewMap()
	style.Set("weight", codec.String(weight))
	return style
}

func optionsValue(opts []Option) *codec.Array {
	out := codec.NewArray()
	for _, o := range opts {
		entry := codec.NewMap()
		entry.Set("text", codec.String(o.Text))
		entry.Set("type", codec.String("option"))
		entry.Set("value", codec.String(o.Value))
		out.Append(entry)
	}
	return out
}

func switchValue(v codec.Value) codec.Value {
	switch t := v.(type) {
	case codec.Bool:
		if t {
			return codec.String("true")
		}
		return codec.String("false")
	case codec.String:
		return t
	default:
		return codec.String("false")
	}
}

func sliderValue(v codec.Value) codec.Value {
	switch v.(type) {
	case codec.Number, codec.String:
		return v
	default:
		return codec.String("0")
	}
}

func selectedValue(v codec.Value) codec.Value {
	if s, ok := codec.AsString(v); ok {
		return codec.String(s)
	}
	return codec.String("")
}

func selectedItemsValue(v codec.Value) codec.Value {
	if a, ok := codec.AsArray(v); ok {
		return a
	}
	return codec.NewArray()
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
