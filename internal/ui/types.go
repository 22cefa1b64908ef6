package ui

import "github.com/jangabrielsson/plua2/internal/codec"

// ElementType identifies the kind of a declared UI element.
type ElementType int

// Supported element kinds.
const (
	TypeLabel ElementType = iota
	TypeButton
	TypeSwitch
	TypeSlider
	TypeSelect
	TypeMulti
)

// String returns the wire name of the element type.
func (t ElementType) String() string {
	switch t {
	case TypeLabel:
		return "label"
	case TypeButton:
		return "button"
	case TypeSwitch:
		return "switch"
	case TypeSlider:
		return "slider"
	case TypeSelect:
		return "select"
	case TypeMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// Binding associates a UI event with the script method invoked when it
// fires. Bindings keep declaration order.
type Binding struct {
	Event  string
	Method string
}

// Option is one selectable entry of a select or multi-select element.
type Option struct {
	Text  string
	Value string
}

// Element is one declared UI element. A button row carries its buttons in
// Items; every other kind stands alone.
type Element struct {
	Type    ElementType
	ID      string
	Text    string
	Visible bool

	// Value is the element's current value (switch state, slider position,
	// selected entry).
	Value codec.Value

	// Slider range; only meaningful for TypeSlider.
	Min, Max, Step int

	Options  []Option
	Bindings []Binding

	// Items holds the members of a button row. When non-empty the outer
	// element is only a horizontal grouping and has no id of its own.
	Items []Element
}

// Callback is one entry of the callback-dispatch table: invoking Component
// with Event resolves to the script method named Method.
type Callback struct {
	Component string
	Event     string
	Method    string
}

// Component is the mutable live state of one addressable element inside a
// compiled view. node is the layout object inside the view tree; property
// updates write through to it so the rendered view stays current.
type Component struct {
	ID      string
	Type    ElementType
	Text    string
	Visible bool
	Value   codec.Value
	Options []Option

	node *codec.Map
}

// Compiled is the output of compiling an ordered element list: the
// renderable view tree, the callback-dispatch table and the live component
// lookup map.
type Compiled struct {
	Callbacks  []Callback
	ViewLayout *codec.Map
	Components map[string]*Component

	// elements preserves the compiled declaration list so platform-default
	// elements can later be merged ahead of it; title is kept so a
	// recompile renders the same header row.
	elements []Element
	title    string
}
