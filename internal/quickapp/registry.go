package quickapp

import (
	"fmt"
	"sync"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// Registry is the authoritative directory of live device descriptors.
// It owns id allocation and parent/child linkage; every other component
// references descriptors by id.
//
// The emulation runs as one logical thread of control, but the HTTP layer
// serves requests concurrently. The registry mutex serializes directory
// mutation; each registered descriptor carries its own lock, and all
// post-registration reads and writes of descriptor state go through the
// Device accessors to keep the no-torn-read guarantee.
type Registry struct {
	mu        sync.RWMutex
	devices   map[int]*Device
	order     []int
	nextID    int
	templates *TemplateRegistry
	events    *events.Store
	log       Logger
}

// NewRegistry creates a registry whose first allocated id is firstID.
// The id counter is owned by the instance: registries never interfere,
// which also keeps tests independent.
func NewRegistry(templates *TemplateRegistry, firstID int) *Registry {
	return &Registry{
		devices:   make(map[int]*Device),
		nextID:    firstID,
		templates: templates,
		log:       noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(l Logger) {
	r.log = l
}

// SetEvents attaches the event store device lifecycle events are emitted to.
func (r *Registry) SetEvents(s *events.Store) {
	r.events = s
}

// AllocateID returns the next monotonic device id.
func (r *Registry) AllocateID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Register inserts the descriptor under its id. An unexpected collision is
// last-write-wins, with a warning; explicit ids from headers may legally
// replace an earlier registration of the same script.
func (r *Registry) Register(d *Device) {
	r.mu.Lock()
	if _, exists := r.devices[d.ID]; exists {
		r.log.Warn("device id collision, replacing", "id", d.ID, "name", d.Name)
	} else {
		r.order = append(r.order, d.ID)
	}
	r.devices[d.ID] = d
	// Keep monotonic allocation ahead of explicit ids.
	if d.ID >= r.nextID {
		r.nextID = d.ID + 1
	}
	r.mu.Unlock()

	r.log.Info("device registered", "id", d.ID, "type", d.Type, "name", d.Name)
	if r.events != nil {
		r.events.Add(events.DeviceCreated(d.ID, d.Type))
	}
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id int) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// List returns all registered descriptors in registration order.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.order))
	for _, id := range r.order {
		if d, ok := r.devices[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// ChildSpec describes a child device to create under a parent.
type ChildSpec struct {
	ParentID int
	Name     string
	Type     string

	// InitialProperties may carry a viewLayout/uiCallbacks snapshot, in
	// which case the child's UI is reconstructed from it instead of
	// source directives. Other entries merge into the child's properties.
	InitialProperties *codec.Map

	InitialInterfaces []string
}

// CreateChild allocates an id, clones the type template, optionally
// reconstructs UI from a supplied snapshot, merges platform-embedded UI
// elements ahead, links the parent and registers the child.
func (r *Registry) CreateChild(spec ChildSpec) (*Device, error) {
	child, err := r.templates.Instantiate(spec.Type)
	if err != nil {
		return nil, err
	}

	child.ID = r.AllocateID()
	child.Name = spec.Name
	child.ParentID = spec.ParentID
	child.Interfaces = mergeInterfaces(child.Interfaces, spec.InitialInterfaces)

	var declared []ui.Element
	if spec.InitialProperties != nil {
		declared, err = snapshotUI(spec.InitialProperties)
		if err != nil {
			return nil, err
		}
		for _, k := range spec.InitialProperties.Keys() {
			switch k {
			case "viewLayout", "uiCallbacks", "uiView":
				continue
			}
			v, _ := spec.InitialProperties.Get(k)
			child.Properties.Set(k, v)
		}
	}

	compiled, err := ui.Compile(child.Title(), declared)
	if err != nil {
		return nil, err
	}
	if embedded := r.templates.EmbeddedUI(spec.Type); len(embedded) > 0 {
		compiled, err = compiled.Extend(embedded)
		if err != nil {
			return nil, err
		}
	}
	child.SetUI(compiled)

	r.Register(child)
	return child, nil
}

// snapshotUI reconstructs declared elements from a view/callback snapshot
// in the initial properties, when one is present.
func snapshotUI(props *codec.Map) ([]ui.Element, error) {
	viewVal, ok := props.Get("viewLayout")
	if !ok {
		return nil, nil
	}
	view, ok := codec.AsMap(viewVal)
	if !ok {
		return nil, fmt.Errorf("%w: viewLayout snapshot is not an object", ui.ErrInvalidElement)
	}

	var callbacks *codec.Array
	if cbVal, ok := props.Get("uiCallbacks"); ok {
		callbacks, _ = codec.AsArray(cbVal)
	}

	return ui.FromView(view, callbacks)
}

func mergeInterfaces(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := append([]string{}, base...)
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
