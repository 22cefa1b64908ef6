package quickapp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/headers"
	"github.com/jangabrielsson/plua2/internal/scheduler"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// proxyUpdateDelay is how long after load a changed proxy pushes its
// updated parts to the remote mirror.
const proxyUpdateDelay = 2 * time.Second

// ProxyClient is the remote-mirror protocol the factory drives. The proxy
// package provides the HTTP implementation; tests substitute their own.
type ProxyClient interface {
	// FindDevice looks up a remote device by name. It returns (nil, nil)
	// when no such device exists.
	FindDevice(ctx context.Context, name string) (*codec.Map, error)

	// CreateProxy creates a remote mirror for the device and returns the
	// remote id.
	CreateProxy(ctx context.Context, d *Device, vars *codec.Array) (int, error)

	// UpdateProxy pushes the given changed parts to the remote mirror.
	UpdateProxy(ctx context.Context, remoteID int, parts *codec.Map) error
}

// Factory builds device descriptors from script content: header parsing,
// proxy negotiation, template resolution, id assignment and UI compilation.
type Factory struct {
	registry *Registry
	parser   *headers.Parser
	proxy    ProxyClient
	sched    *scheduler.Scheduler
	offline  bool
	log      Logger

	updateDelay time.Duration
}

// FactoryDeps holds the dependencies required by a Factory.
type FactoryDeps struct {
	Registry *Registry
	Parser   *headers.Parser
	Proxy    ProxyClient // may be nil when no remote is configured
	Sched    *scheduler.Scheduler
	Offline  bool
	Logger   Logger
}

// NewFactory creates a device factory.
func NewFactory(deps FactoryDeps) *Factory {
	log := deps.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &Factory{
		registry: deps.Registry,
		parser:   deps.Parser,
		proxy:    deps.Proxy,
		sched:    deps.Sched,
		offline:  deps.Offline,
		log:      log,

		updateDelay: proxyUpdateDelay,
	}
}

// CreateFromContent parses the script's headers and produces a registered
// device descriptor plus the header-derived metadata.
//
// Offline wins over proxy: a script asking for both gets a local device
// and a warning. A proxy request looks for an existing remote mirror by
// name; when found, changed parts are pushed asynchronously after a short
// delay; when not found, a new mirror is created. Remote failures fall
// back to a local device; only structural errors (unknown type, invalid
// headers) abort the load.
func (f *Factory) CreateFromContent(ctx context.Context, name, content string) (*Device, *headers.HeaderSet, error) {
	hs, err := f.parser.Parse(name, content)
	if err != nil {
		return nil, nil, err
	}

	if hs.Offline && hs.Proxy {
		f.log.Warn("offline wins over proxy, proxy disabled", "name", hs.Name)
		hs.Proxy = false
	}
	offline := f.offline || hs.Offline

	var dev *Device
	if hs.Proxy && !offline {
		if f.proxy == nil {
			f.log.Warn("proxy requested but no remote controller configured", "name", hs.Name)
		} else {
			dev, err = f.setupProxy(ctx, hs)
			if err != nil {
				// Transport trouble is non-fatal: run the device locally.
				f.log.Warn("proxy setup failed, running locally", "name", hs.Name, "error", err)
				dev = nil
			}
		}
	}

	if dev == nil {
		dev, err = f.registry.templates.Instantiate(hs.Type)
		if err != nil {
			return nil, nil, err
		}
		if hs.ID != 0 {
			dev.ID = hs.ID
		} else {
			dev.ID = f.registry.AllocateID()
		}
	}

	dev.Name = hs.Name
	dev.Interfaces = mergeInterfaces(dev.Interfaces, hs.Interfaces)
	dev.Properties.Set("quickAppVariables", VariablesValue(headerVars(hs)))

	compiled, err := ui.Compile(dev.Title(), hs.UI)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", headers.ErrValidation, err)
	}
	// Platform-default elements for the type merge ahead of the script's
	// declarations.
	if embedded := f.registry.templates.EmbeddedUI(hs.Type); len(embedded) > 0 {
		compiled, err = compiled.Extend(embedded)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", headers.ErrValidation, err)
		}
	}
	dev.SetUI(compiled)

	f.registry.Register(dev)
	return dev, hs, nil
}

// setupProxy links the script to its remote mirror, creating it when
// absent or diffing against it when present.
func (f *Factory) setupProxy(ctx context.Context, hs *headers.HeaderSet) (*Device, error) {
	existing, err := f.proxy.FindDevice(ctx, hs.Name)
	if err != nil {
		return nil, err
	}

	dev, err := f.registry.templates.Instantiate(hs.Type)
	if err != nil {
		return nil, err
	}
	dev.Name = hs.Name
	dev.Interfaces = mergeInterfaces(dev.Interfaces, hs.Interfaces)

	if existing == nil {
		remoteID, err := f.proxy.CreateProxy(ctx, dev, VariablesValue(headerVars(hs)))
		if err != nil {
			return nil, err
		}
		dev.ID = remoteID
		dev.Proxy = &ProxyLink{RemoteID: remoteID}
		f.log.Info("created remote proxy", "name", hs.Name, "remote_id", remoteID)
		return dev, nil
	}

	remoteID := codec.GetInt(existing, "id", 0)
	if remoteID == 0 {
		return nil, fmt.Errorf("%w: remote device %q has no id", ErrProxyFailed, hs.Name)
	}
	dev.ID = remoteID

	link := f.diffRemote(existing, hs, dev)
	dev.Proxy = link

	if link.InterfacesDirty || link.VarsDirty || link.UIDirty {
		f.schedulePartialUpdate(dev, link)
	}
	return dev, nil
}

// diffRemote compares the requested interfaces, variables and UI against
// the recorded state of the remote mirror. Deterministic encoding makes
// deep comparison a string compare.
func (f *Factory) diffRemote(existing *codec.Map, hs *headers.HeaderSet, dev *Device) *ProxyLink {
	link := &ProxyLink{RemoteID: dev.ID}

	remoteIfs := interfacesOf(existing)
	link.InterfacesDirty = !sameStringSet(remoteIfs, dev.Interfaces)

	remoteProps := propertiesOf(existing)
	link.VarsDirty = !sameListState(mapEntry(remoteProps, "quickAppVariables"), VariablesValue(headerVars(hs)))

	// Callbacks capture the declared UI without the id-dependent title, so
	// they stand in for the whole UI when diffing.
	desired, err := ui.Compile(dev.Title(), append(append([]ui.Element{}, f.registry.templates.EmbeddedUI(hs.Type)...), hs.UI...))
	if err == nil {
		link.UIDirty = !sameListState(mapEntry(remoteProps, "uiCallbacks"), desired.CallbacksValue())
	}

	return link
}

// schedulePartialUpdate schedules the asynchronous remote-update push,
// carrying just the changed parts. The payload is built when the task
// fires so it reflects the fully compiled device.
func (f *Factory) schedulePartialUpdate(dev *Device, link *ProxyLink) {
	remoteID := link.RemoteID
	f.sched.After(f.updateDelay, fmt.Sprintf("proxy update %d", remoteID), func() {
		parts := codec.NewMap()
		if link.InterfacesDirty {
			ifs := codec.NewArray()
			dev.Mutate(func() {
				for _, s := range dev.Interfaces {
					ifs.Append(codec.String(s))
				}
			})
			parts.Set("interfaces", ifs)
		}
		if link.VarsDirty {
			if v, ok := dev.Property("quickAppVariables"); ok {
				parts.Set("quickAppVariables", v)
			}
		}
		if link.UIDirty {
			if v, ok := dev.Property("viewLayout"); ok {
				parts.Set("viewLayout", v)
			}
			if v, ok := dev.Property("uiCallbacks"); ok {
				parts.Set("uiCallbacks", v)
			}
		}

		if err := f.proxy.UpdateProxy(context.Background(), remoteID, parts); err != nil {
			f.log.Warn("proxy update failed", "remote_id", remoteID, "error", err)
			return
		}
		link.InterfacesDirty = false
		link.VarsDirty = false
		link.UIDirty = false
		f.log.Debug("proxy updated", "remote_id", remoteID)
	})
}

func headerVars(hs *headers.HeaderSet) []Variable {
	out := make([]Variable, 0, len(hs.Variables))
	for _, v := range hs.Variables {
		out = append(out, Variable{Name: v.Name, Value: v.Value})
	}
	return out
}

func interfacesOf(device *codec.Map) []string {
	v, ok := device.Get("interfaces")
	if !ok {
		return nil
	}
	arr, ok := codec.AsArray(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if s, ok := codec.AsString(arr.At(i)); ok {
			out = append(out, s)
		}
	}
	return out
}

func propertiesOf(device *codec.Map) *codec.Map {
	if v, ok := device.Get("properties"); ok {
		if m, ok := codec.AsMap(v); ok {
			return m
		}
	}
	return codec.NewMap()
}

func mapEntry(m *codec.Map, key string) codec.Value {
	v, _ := m.Get(key)
	return v
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// sameListState compares the recorded remote list against the desired one
// structurally via the deterministic encoder. A remote side that never
// recorded the property counts as equal to an empty desired list.
func sameListState(remote codec.Value, desired *codec.Array) bool {
	if codec.IsNull(remote) {
		return desired.Len() == 0
	}
	er, errR := codec.Encode(remote)
	ed, errD := codec.Encode(desired)
	if errR != nil || errD != nil {
		return false
	}
	return er == ed
}
