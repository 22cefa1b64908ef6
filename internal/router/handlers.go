package router

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/quickapp"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// Services are the emulator components the built-in API surface operates
// on.
type Services struct {
	Registry *quickapp.Registry
	Globals  *quickapp.GlobalStore
	Events   *events.Store
	Log      Logger
}

// RegisterRoutes installs the emulated controller surface. Calls touching
// devices the emulator does not own decline, so in proxy mode they reach
// the real controller.
func RegisterRoutes(r *Router, s Services) {
	if s.Log == nil {
		s.Log = noopLogger{}
	}

	r.Handle(http.MethodGet, "/devices", s.listDevices)
	r.Handle(http.MethodGet, "/devices/:id", s.getDevice)
	r.Handle(http.MethodPut, "/devices/:id", s.updateDevice)
	r.Handle(http.MethodGet, "/devices/:id/properties/:name", s.getProperty)
	r.Handle(http.MethodPost, "/devices/:id/action/:name", s.callAction)

	r.Handle(http.MethodPost, "/plugins/updateProperty", s.updateProperty)
	r.Handle(http.MethodPost, "/plugins/updateView", s.updateView)
	r.Handle(http.MethodPost, "/plugins/callUIEvent", s.callUIEvent)
	r.Handle(http.MethodPost, "/plugins/createChildDevice", s.createChild)

	r.Handle(http.MethodGet, "/settings/info", s.settingsInfo)

	r.Handle(http.MethodGet, "/globalVariables", s.listGlobals)
	r.Handle(http.MethodGet, "/globalVariables/:name", s.getGlobal)
	r.Handle(http.MethodPost, "/globalVariables", s.createGlobal)
	r.Handle(http.MethodPut, "/globalVariables/:name", s.updateGlobal)
	r.Handle(http.MethodDelete, "/globalVariables/:name", s.deleteGlobal)

	r.Handle(http.MethodGet, "/refreshStates", s.refreshStates)
}

func (s Services) listDevices(_ context.Context, _ *Request) (codec.Value, int) {
	out := codec.NewArray()
	for _, d := range s.Registry.List() {
		out.Append(d.ToValue(true))
	}
	return out, http.StatusOK
}

// deviceFor resolves the :id var to a locally owned device. A missing or
// foreign id declines so the call can fall through to the remote.
func (s Services) deviceFor(req *Request) (*quickapp.Device, bool) {
	id, err := strconv.Atoi(req.Vars["id"])
	if err != nil {
		return nil, false
	}
	d, ok := s.Registry.Get(id)
	return d, ok
}

func (s Services) getDevice(_ context.Context, req *Request) (codec.Value, int) {
	d, ok := s.deviceFor(req)
	if !ok {
		return nil, StatusDeclined
	}
	return d.ToValue(true), http.StatusOK
}

func (s Services) updateDevice(_ context.Context, req *Request) (codec.Value, int) {
	d, ok := s.deviceFor(req)
	if !ok {
		return nil, StatusDeclined
	}
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}

	d.Mutate(func() {
		if name := codec.GetString(body, "name", ""); name != "" {
			d.Name = name
		}
		if v, ok := body.Get("enabled"); ok {
			if b, ok := codec.AsBool(v); ok {
				d.Enabled = b
			}
		}
		if v, ok := body.Get("visible"); ok {
			if b, ok := codec.AsBool(v); ok {
				d.Visible = b
			}
		}
		if v, ok := body.Get("properties"); ok {
			if props, ok := codec.AsMap(v); ok {
				for _, k := range props.Keys() {
					pv, _ := props.Get(k)
					d.Properties.Set(k, pv)
				}
			}
		}
	})
	return d.ToValue(true), http.StatusOK
}

func (s Services) getProperty(_ context.Context, req *Request) (codec.Value, int) {
	d, ok := s.deviceFor(req)
	if !ok {
		return nil, StatusDeclined
	}
	value, ok := d.Property(req.Vars["name"])
	if !ok {
		return nil, http.StatusNotFound
	}
	out := codec.NewMap()
	out.Set("value", value)
	return out, http.StatusOK
}

func (s Services) callAction(_ context.Context, req *Request) (codec.Value, int) {
	d, ok := s.deviceFor(req)
	if !ok {
		return nil, StatusDeclined
	}

	var args *codec.Array
	if body, ok := codec.AsMap(req.Body); ok {
		if v, ok := body.Get("args"); ok {
			args, _ = codec.AsArray(v)
		}
	}
	s.Events.Add(events.DeviceAction(d.ID, req.Vars["name"], args))
	return nil, http.StatusOK
}

func (s Services) updateProperty(_ context.Context, req *Request) (codec.Value, int) {
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}
	id := codec.GetInt(body, "deviceId", 0)
	name := codec.GetString(body, "propertyName", "")
	d, ok := s.Registry.Get(id)
	if !ok {
		return nil, StatusDeclined
	}
	if name == "" {
		return nil, http.StatusBadRequest
	}

	value, _ := body.Get("value")
	d.SetProperty(name, value)
	s.Events.Add(events.DevicePropertyUpdated(d.ID, name, value))
	return nil, http.StatusOK
}

func (s Services) updateView(_ context.Context, req *Request) (codec.Value, int) {
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}
	id := codec.GetInt(body, "deviceId", 0)
	d, ok := s.Registry.Get(id)
	if !ok {
		return nil, StatusDeclined
	}
	compiled := d.UI()
	if compiled == nil {
		return nil, http.StatusOK
	}

	component := codec.GetString(body, "componentName", "")
	propName := codec.GetString(body, "propertyName", "")
	value, _ := body.Get("newValue")

	prop, known := ui.ParseProperty(propName)
	if !known {
		s.Log.Warn("view update for unknown property ignored",
			"device", id, "component", component, "property", propName)
		return nil, http.StatusOK
	}
	var applyErr error
	// Apply rewrites nodes shared with the viewLayout property, so it runs
	// under the device lock.
	d.Mutate(func() {
		applyErr = compiled.Apply(component, prop, value)
	})
	if applyErr != nil {
		s.Log.Warn("view update ignored", "device", id, "component", component, "error", applyErr)
	}
	return nil, http.StatusOK
}

// callUIEvent resolves a view element's event to its bound script method
// and records the invocation on the event queue.
func (s Services) callUIEvent(_ context.Context, req *Request) (codec.Value, int) {
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}
	id := codec.GetInt(body, "deviceId", 0)
	d, ok := s.Registry.Get(id)
	if !ok {
		return nil, StatusDeclined
	}
	compiled := d.UI()
	if compiled == nil {
		return nil, http.StatusNotFound
	}

	element := codec.GetString(body, "elementName", "")
	eventType := codec.GetString(body, "eventType", "")
	method, bound := compiled.Callback(element, eventType)
	if !bound {
		s.Log.Warn("ui event with no binding ignored",
			"device", id, "element", element, "event", eventType)
		return nil, http.StatusNotFound
	}

	value, _ := body.Get("value")
	s.Events.Add(events.UIEvent(id, element, eventType, method, value))
	return nil, http.StatusOK
}

func (s Services) createChild(_ context.Context, req *Request) (codec.Value, int) {
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}

	spec := quickapp.ChildSpec{
		ParentID: codec.GetInt(body, "parentId", 0),
		Name:     codec.GetString(body, "name", ""),
		Type:     codec.GetString(body, "type", ""),
	}
	if v, ok := body.Get("initialProperties"); ok {
		spec.InitialProperties, _ = codec.AsMap(v)
	}
	if v, ok := body.Get("initialInterfaces"); ok {
		if arr, ok := codec.AsArray(v); ok {
			for i := 0; i < arr.Len(); i++ {
				if str, ok := codec.AsString(arr.At(i)); ok {
					spec.InitialInterfaces = append(spec.InitialInterfaces, str)
				}
			}
		}
	}

	child, err := s.Registry.CreateChild(spec)
	if err != nil {
		s.Log.Warn("child creation failed", "parent", spec.ParentID, "type", spec.Type, "error", err)
		return nil, http.StatusBadRequest
	}
	return child.ToValue(true), http.StatusOK
}

func (s Services) settingsInfo(_ context.Context, _ *Request) (codec.Value, int) {
	out := codec.NewMap()
	out.Set("serialNumber", codec.String("PLUA2-0000"))
	out.Set("platform", codec.String("plua2"))
	out.Set("softVersion", codec.String("1.0.0"))
	out.Set("serverStatus", codec.Number(1))
	return out, http.StatusOK
}

func (s Services) listGlobals(_ context.Context, _ *Request) (codec.Value, int) {
	return s.Globals.List(), http.StatusOK
}

func (s Services) getGlobal(_ context.Context, req *Request) (codec.Value, int) {
	name := req.Vars["name"]
	value, ok := s.Globals.Get(name)
	if !ok {
		return nil, StatusDeclined
	}
	out := codec.NewMap()
	out.Set("name", codec.String(name))
	out.Set("value", value)
	return out, http.StatusOK
}

func (s Services) createGlobal(_ context.Context, req *Request) (codec.Value, int) {
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}
	name := codec.GetString(body, "name", "")
	if name == "" {
		return nil, http.StatusBadRequest
	}
	value, _ := body.Get("value")
	s.Globals.Set(name, value)
	return body, http.StatusCreated
}

func (s Services) updateGlobal(_ context.Context, req *Request) (codec.Value, int) {
	name := req.Vars["name"]
	if _, ok := s.Globals.Get(name); !ok {
		return nil, StatusDeclined
	}
	body, ok := codec.AsMap(req.Body)
	if !ok {
		return nil, http.StatusBadRequest
	}
	value, _ := body.Get("value")
	s.Globals.Set(name, value)
	return body, http.StatusOK
}

func (s Services) deleteGlobal(_ context.Context, req *Request) (codec.Value, int) {
	if !s.Globals.Delete(req.Vars["name"]) {
		return nil, StatusDeclined
	}
	return nil, http.StatusOK
}

func (s Services) refreshStates(_ context.Context, req *Request) (codec.Value, int) {
	last, _ := strconv.ParseInt(req.Query.Get("last"), 10, 64)
	return s.Events.Get(last), http.StatusOK
}
