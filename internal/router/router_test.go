package router

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/quickapp"
)

// recordingForwarder captures every forwarded call.
type recordingForwarder struct {
	calls []forwardedCall
}

type forwardedCall struct {
	method string
	path   string
	body   codec.Value
}

func (f *recordingForwarder) Call(_ context.Context, method, path string, body codec.Value) (codec.Value, int) {
	f.calls = append(f.calls, forwardedCall{method: method, path: path, body: body})
	return codec.String("remote answer"), http.StatusOK
}

func TestDispatchFirstMatchWins(t *testing.T) {
	r := New(true, nil)
	r.Handle(http.MethodGet, "/devices/:id", func(context.Context, *Request) (codec.Value, int) {
		return codec.String("first"), http.StatusOK
	})
	r.Handle(http.MethodGet, "/devices/:id", func(context.Context, *Request) (codec.Value, int) {
		return codec.String("second"), http.StatusOK
	})

	value, status := r.Dispatch(context.Background(), http.MethodGet, "/devices/5", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if s, _ := codec.AsString(value); s != "first" {
		t.Errorf("value = %v, want first registration", value)
	}
}

func TestDispatchVarsAndQuery(t *testing.T) {
	r := New(true, nil)

	var gotVars map[string]string
	var gotLast string
	r.Handle(http.MethodGet, "/devices/:id/properties/:name", func(_ context.Context, req *Request) (codec.Value, int) {
		gotVars = req.Vars
		gotLast = req.Query.Get("last")
		return nil, http.StatusOK
	})

	_, status := r.Dispatch(context.Background(), http.MethodGet, "/devices/42/properties/value?last=7", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if gotVars["id"] != "42" || gotVars["name"] != "value" {
		t.Errorf("vars = %v", gotVars)
	}
	if gotLast != "7" {
		t.Errorf("query last = %q", gotLast)
	}
}

func TestDispatchMethodFilter(t *testing.T) {
	r := New(true, nil)
	r.Handle(http.MethodGet, "/devices", func(context.Context, *Request) (codec.Value, int) {
		return nil, http.StatusOK
	})

	if _, status := r.Dispatch(context.Background(), http.MethodPost, "/devices", nil); status != http.StatusRequestTimeout {
		t.Errorf("POST against GET route: status = %d, want offline 408", status)
	}
}

func TestDispatchWildcard(t *testing.T) {
	r := New(true, nil)
	r.Handle(http.MethodGet, "/settings/*", func(context.Context, *Request) (codec.Value, int) {
		return nil, http.StatusOK
	})

	if _, status := r.Dispatch(context.Background(), http.MethodGet, "/settings/network/interfaces", nil); status != http.StatusOK {
		t.Errorf("wildcard miss: status = %d", status)
	}
}

func TestFallbackForwardsExactlyOnce(t *testing.T) {
	fwd := &recordingForwarder{}
	r := New(false, fwd)

	body := codec.NewMap()
	body.Set("args", codec.MakeArray(codec.Number(3)))

	value, status := r.Dispatch(context.Background(), http.MethodPost, "/devices/9/action/setValue?x=1", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if s, _ := codec.AsString(value); s != "remote answer" {
		t.Errorf("value = %v", value)
	}

	if len(fwd.calls) != 1 {
		t.Fatalf("forwarded %d times, want exactly 1", len(fwd.calls))
	}
	call := fwd.calls[0]
	if call.method != http.MethodPost {
		t.Errorf("forwarded method = %s", call.method)
	}
	if call.path != "/devices/9/action/setValue?x=1" {
		t.Errorf("forwarded path = %s, want original path with query", call.path)
	}
	if call.body != body {
		t.Error("forwarded body is not the original body")
	}
}

func TestFallbackOfflineIs408WithZeroNetworkCalls(t *testing.T) {
	fwd := &recordingForwarder{}
	r := New(true, fwd)

	value, status := r.Dispatch(context.Background(), http.MethodGet, "/no/such/route", nil)
	if status != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", status)
	}
	if value != nil {
		t.Errorf("value = %v, want nil", value)
	}
	if len(fwd.calls) != 0 {
		t.Errorf("forwarded %d times while offline, want 0", len(fwd.calls))
	}
}

func TestDeclineFallsThroughToForwarder(t *testing.T) {
	fwd := &recordingForwarder{}
	r := New(false, fwd)
	r.Handle(http.MethodGet, "/devices/:id", func(context.Context, *Request) (codec.Value, int) {
		return nil, StatusDeclined
	})

	_, status := r.Dispatch(context.Background(), http.MethodGet, "/devices/999", nil)
	if status == StatusDeclined {
		t.Fatal("internal decline sentinel leaked to the caller")
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if len(fwd.calls) != 1 {
		t.Errorf("forwarded %d times, want 1", len(fwd.calls))
	}
}

func newTestServices(t *testing.T) (Services, *Router) {
	t.Helper()
	templates, err := quickapp.LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	s := Services{
		Registry: quickapp.NewRegistry(templates, 5000),
		Globals:  quickapp.NewGlobalStore(),
		Events:   events.NewStore(),
	}
	r := New(true, nil)
	RegisterRoutes(r, s)
	return s, r
}

func registerDevice(t *testing.T, s Services, name string) *quickapp.Device {
	t.Helper()
	child, err := s.Registry.CreateChild(quickapp.ChildSpec{
		Name: name,
		Type: "com.fibaro.binarySwitch",
	})
	if err != nil {
		t.Fatalf("CreateChild() error = %v", err)
	}
	return child
}

func TestGetDevice(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")

	value, status := r.Dispatch(context.Background(), http.MethodGet, "/devices/5000", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	m, _ := codec.AsMap(value)
	if codec.GetInt(m, "id", 0) != dev.ID {
		t.Errorf("device id mismatch: %v", value)
	}
	if codec.GetString(m, "name", "") != "lamp" {
		t.Errorf("name = %v", value)
	}

	// Unknown ids decline, which in offline mode is a 408.
	if _, status := r.Dispatch(context.Background(), http.MethodGet, "/devices/777", nil); status != http.StatusRequestTimeout {
		t.Errorf("unknown device: status = %d, want 408 offline fallthrough", status)
	}
}

func TestUpdateDevice(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")

	body := codec.NewMap()
	body.Set("name", codec.String("renamed"))
	props := codec.NewMap()
	props.Set("value", codec.Bool(true))
	body.Set("properties", props)

	_, status := r.Dispatch(context.Background(), http.MethodPut, "/devices/5000", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if dev.Name != "renamed" {
		t.Errorf("name = %q", dev.Name)
	}
	if v, _ := dev.Properties.Get("value"); !codec.GetBool(dev.Properties, "value", false) {
		t.Errorf("value = %v", v)
	}
}

func TestCallActionEmitsEvent(t *testing.T) {
	s, r := newTestServices(t)
	registerDevice(t, s, "lamp")

	body := codec.NewMap()
	body.Set("args", codec.MakeArray(codec.Number(55)))

	_, status := r.Dispatch(context.Background(), http.MethodPost, "/devices/5000/action/setValue", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	envelope := s.Events.Get(0)
	evs, _ := envelope.Get("events")
	arr, _ := codec.AsArray(evs)
	if arr.Len() == 0 {
		t.Fatal("no event recorded")
	}
	last, _ := codec.AsMap(arr.At(arr.Len() - 1))
	if codec.GetString(last, "type", "") != "onAction" {
		t.Errorf("event type = %v", last)
	}
}

func TestUpdatePropertyEmitsEvent(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")

	body := codec.NewMap()
	body.Set("deviceId", codec.Number(dev.ID))
	body.Set("propertyName", codec.String("value"))
	body.Set("value", codec.Bool(true))

	_, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/updateProperty", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !codec.GetBool(dev.Properties, "value", false) {
		t.Error("property not written")
	}

	envelope := s.Events.Get(0)
	evs, _ := envelope.Get("events")
	arr, _ := codec.AsArray(evs)
	found := false
	for i := 0; i < arr.Len(); i++ {
		m, _ := codec.AsMap(arr.At(i))
		if codec.GetString(m, "type", "") == "DevicePropertyUpdatedEvent" {
			found = true
		}
	}
	if !found {
		t.Error("DevicePropertyUpdatedEvent not recorded")
	}
}

func TestCallUIEventResolvesBinding(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")

	body := codec.NewMap()
	body.Set("deviceId", codec.Number(dev.ID))
	body.Set("elementName", codec.String("__turnOn"))
	body.Set("eventType", codec.String("onReleased"))

	_, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/callUIEvent", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	envelope := s.Events.Get(0)
	evs, _ := envelope.Get("events")
	arr, _ := codec.AsArray(evs)
	found := false
	for i := 0; i < arr.Len(); i++ {
		m, _ := codec.AsMap(arr.At(i))
		if codec.GetString(m, "type", "") != "onUIEvent" {
			continue
		}
		found = true
		data, _ := m.Get("data")
		dm, _ := codec.AsMap(data)
		if got := codec.GetString(dm, "method", ""); got != "turnOn" {
			t.Errorf("resolved method = %q, want turnOn", got)
		}
	}
	if !found {
		t.Error("onUIEvent not recorded")
	}

	// An event the element never bound is refused.
	body.Set("eventType", codec.String("onChanged"))
	if _, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/callUIEvent", body); status != http.StatusNotFound {
		t.Errorf("unbound event status = %d, want 404", status)
	}
}

func TestConcurrentUpdateAndRead(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")
	path := "/devices/" + strconv.Itoa(dev.ID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				body := codec.NewMap()
				body.Set("deviceId", codec.Number(dev.ID))
				body.Set("propertyName", codec.String("value"))
				body.Set("value", codec.Number(n*100+j))
				if _, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/updateProperty", body); status != http.StatusOK {
					t.Errorf("updateProperty status = %d", status)
					return
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				value, status := r.Dispatch(context.Background(), http.MethodGet, path, nil)
				if status != http.StatusOK {
					t.Errorf("getDevice status = %d", status)
					return
				}
				// Encode the snapshot while writers keep going, as the
				// web layer does.
				if _, err := codec.Encode(value); err != nil {
					t.Errorf("Encode() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestUpdateViewWritesThrough(t *testing.T) {
	s, r := newTestServices(t)
	dev := registerDevice(t, s, "lamp")

	body := codec.NewMap()
	body.Set("deviceId", codec.Number(dev.ID))
	body.Set("componentName", codec.String("__turnOn"))
	body.Set("propertyName", codec.String("text"))
	body.Set("newValue", codec.String("Power On"))

	_, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/updateView", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	comp := dev.UI().Components["__turnOn"]
	if comp == nil || comp.Text != "Power On" {
		t.Errorf("component text not updated: %+v", comp)
	}

	// Unknown properties are ignored, never an error.
	body.Set("propertyName", codec.String("nonsense"))
	if _, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/updateView", body); status != http.StatusOK {
		t.Errorf("unknown property: status = %d, want 200", status)
	}
}

func TestCreateChildRoute(t *testing.T) {
	s, r := newTestServices(t)
	parent := registerDevice(t, s, "parent")

	body := codec.NewMap()
	body.Set("parentId", codec.Number(parent.ID))
	body.Set("name", codec.String("child"))
	body.Set("type", codec.String("com.fibaro.binarySensor"))

	value, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/createChildDevice", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	m, _ := codec.AsMap(value)
	if codec.GetInt(m, "parentId", 0) != parent.ID {
		t.Errorf("parentId missing: %v", value)
	}

	body.Set("type", codec.String("no.such.type"))
	if _, status := r.Dispatch(context.Background(), http.MethodPost, "/plugins/createChildDevice", body); status != http.StatusBadRequest {
		t.Errorf("unknown child type: status = %d, want 400", status)
	}
}

func TestGlobalVariablesCRUD(t *testing.T) {
	_, r := newTestServices(t)
	ctx := context.Background()

	body := codec.NewMap()
	body.Set("name", codec.String("mode"))
	body.Set("value", codec.String("home"))
	if _, status := r.Dispatch(ctx, http.MethodPost, "/globalVariables", body); status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}

	value, status := r.Dispatch(ctx, http.MethodGet, "/globalVariables/mode", nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	m, _ := codec.AsMap(value)
	if codec.GetString(m, "value", "") != "home" {
		t.Errorf("value = %v", value)
	}

	update := codec.NewMap()
	update.Set("value", codec.String("away"))
	if _, status := r.Dispatch(ctx, http.MethodPut, "/globalVariables/mode", update); status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}

	if _, status := r.Dispatch(ctx, http.MethodDelete, "/globalVariables/mode", nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}

	// Unknown globals decline; offline that means 408.
	if _, status := r.Dispatch(ctx, http.MethodGet, "/globalVariables/mode", nil); status != http.StatusRequestTimeout {
		t.Errorf("deleted global: status = %d, want 408", status)
	}
}

func TestRefreshStatesSince(t *testing.T) {
	s, r := newTestServices(t)
	registerDevice(t, s, "lamp") // emits DeviceCreatedEvent

	mark := s.Events.Last()
	s.Events.Add(events.DevicePropertyUpdated(5000, "value", codec.Bool(true)))

	value, status := r.Dispatch(context.Background(), http.MethodGet, "/refreshStates?last="+strconv.FormatInt(mark, 10), nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	m, _ := codec.AsMap(value)
	evs, _ := m.Get("events")
	arr, _ := codec.AsArray(evs)
	if arr.Len() != 1 {
		t.Errorf("events since mark = %d, want 1", arr.Len())
	}
	if codec.GetString(m, "status", "") != "IDLE" {
		t.Errorf("envelope status = %v", m)
	}
}
