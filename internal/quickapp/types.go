package quickapp

import (
	"fmt"
	"sync"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// Device is the descriptor of one emulated device. Other components
// reference it by id through the Registry.
//
// Construction is single-threaded, but the HTTP layer serves requests
// concurrently once the device is registered. Post-registration writes
// therefore go through Mutate or SetProperty, and reads that outlive the
// call (anything later encoded) go through Property or ToValue, which
// hand out deep copies under the device lock.
type Device struct {
	mu sync.RWMutex

	ID      int
	Type    string
	Name    string
	Enabled bool
	Visible bool

	// ParentID links a child device to its parent, 0 for top-level devices.
	ParentID int

	Interfaces []string

	// Properties is the ordered property map serialized onto the wire.
	// UI-derived entries (uiCallbacks, viewLayout, uiView) are maintained
	// through SetUI.
	Properties *codec.Map

	// Proxy is set when this device mirrors a remote one.
	Proxy *ProxyLink

	// compiled is the live UI, nil for devices without one.
	compiled *ui.Compiled
}

// ProxyLink records the remote mirror of a proxied device and which parts
// were in sync when the link was established.
type ProxyLink struct {
	RemoteID int

	// Dirty parts discovered at link time; a deferred push clears them.
	InterfacesDirty bool
	VarsDirty       bool
	UIDirty         bool
}

// SetUI attaches a compiled UI and refreshes the UI-derived property
// entries from it.
func (d *Device) SetUI(c *ui.Compiled) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compiled = c
	if d.Properties == nil {
		d.Properties = codec.NewMap()
	}
	d.Properties.Set("uiCallbacks", c.CallbacksValue())
	d.Properties.Set("viewLayout", c.ViewLayout)
	d.Properties.Set("uiView", uiViewRows(c.ViewLayout))
}

// UI returns the device's compiled UI, or nil. Callers that modify the
// returned UI do so inside Mutate, since its nodes are shared with the
// viewLayout property.
func (d *Device) UI() *ui.Compiled {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.compiled
}

// Mutate runs fn with the device lock held. Every field or property write
// after registration goes through it; fn must not call other locking
// Device methods.
func (d *Device) Mutate(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// SetProperty sets one property under the device lock.
func (d *Device) SetProperty(name string, value codec.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Properties == nil {
		d.Properties = codec.NewMap()
	}
	d.Properties.Set(name, value)
}

// Property returns a deep copy of the named property, safe to encode
// after the call returns.
func (d *Device) Property(name string) (codec.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.Properties == nil {
		return nil, false
	}
	v, ok := d.Properties.Get(name)
	if !ok {
		return nil, false
	}
	return codec.Clone(v), true
}

// ToValue renders the device in its wire shape. When withUI is false the
// UI-derived property entries are omitted, matching the list endpoint
// which carries UI only on demand. The result is a deep copy, safe to
// encode while the device keeps changing.
func (d *Device) ToValue(withUI bool) *codec.Map {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := codec.NewMap()
	out.Set("id", codec.Number(d.ID))
	out.Set("type", codec.String(d.Type))
	out.Set("name", codec.String(d.Name))
	out.Set("enabled", codec.Bool(d.Enabled))
	out.Set("visible", codec.Bool(d.Visible))
	if d.ParentID != 0 {
		out.Set("parentId", codec.Number(d.ParentID))
	}

	ifs := codec.NewArray()
	for _, s := range d.Interfaces {
		ifs.Append(codec.String(s))
	}
	out.Set("interfaces", ifs)

	props := codec.NewMap()
	if d.Properties != nil {
		for _, k := range d.Properties.Keys() {
			if !withUI {
				switch k {
				case "uiCallbacks", "viewLayout", "uiView":
					continue
				}
			}
			v, _ := d.Properties.Get(k)
			props.Set(k, codec.Clone(v))
		}
	}
	out.Set("properties", props)

	return out
}

// Title returns the view-tree title for this device.
func (d *Device) Title() string {
	return fmt.Sprintf("quickApp_device_%d", d.ID)
}

// uiViewRows extracts the row list from a view tree for the uiView
// property, which carries the rows without the surrounding scaffolding.
func uiViewRows(layout *codec.Map) codec.Value {
	cur := layout
	for _, key := range []string{"$jason", "body", "sections"} {
		v, ok := cur.Get(key)
		if !ok {
			return codec.NewArray()
		}
		m, ok := codec.AsMap(v)
		if !ok {
			return codec.NewArray()
		}
		cur = m
	}
	if items, ok := cur.Get("items"); ok {
		return items
	}
	return codec.NewArray()
}

// VariablesValue renders script variables as the quickAppVariables wire
// list of {name, value} entries.
func VariablesValue(vars []Variable) *codec.Array {
	out := codec.NewArray()
	for _, v := range vars {
		entry := codec.NewMap()
		entry.Set("name", codec.String(v.Name))
		entry.Set("value", v.Value)
		out.Append(entry)
	}
	return out
}

// Variable mirrors one quickAppVariables entry.
type Variable struct {
	Name  string
	Value codec.Value
}

// Logger is the minimal logging interface used across the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
