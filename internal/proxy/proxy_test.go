package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
	"github.com/jangabrielsson/plua2/internal/quickapp"
)

func newTestClient(url string) *Client {
	return NewClient(config.RemoteConfig{
		URL:      url,
		User:     "admin",
		Password: "secret",
		Timeout:  2,
	})
}

func TestCallForwardsRequest(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotContentType, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"answer":true}`)
	}))
	defer srv.Close()

	body := codec.NewMap()
	body.Set("args", codec.MakeArray(codec.Number(1)))

	value, status := newTestClient(srv.URL).Call(context.Background(), http.MethodPost, "/devices/12/action/turnOn", body)

	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s", gotMethod)
	}
	if gotPath != "/api/devices/12/action/turnOn" {
		t.Errorf("path = %s, want /api prefix preserved", gotPath)
	}
	if gotAuth == "" {
		t.Error("basic auth header missing")
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s", gotContentType)
	}
	if gotBody != `{"args":[1]}` {
		t.Errorf("body = %s", gotBody)
	}

	m, ok := codec.AsMap(value)
	if !ok {
		t.Fatalf("response value = %v, want map", value)
	}
	if v, _ := m.Get("answer"); !codec.GetBool(m, "answer", false) {
		t.Errorf("answer = %v", v)
	}
}

func TestCallTransportFailureIs408(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	value, status := newTestClient(srv.URL).Call(context.Background(), http.MethodGet, "/devices", nil)
	if status != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", status)
	}
	if value != nil {
		t.Errorf("value = %v, want nil", value)
	}
}

func TestCallUndecodableResponseIs501(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	_, status := newTestClient(srv.URL).Call(context.Background(), http.MethodGet, "/devices", nil)
	if status != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", status)
	}
}

func TestCallStatusPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"no such device"}`)
	}))
	defer srv.Close()

	value, status := newTestClient(srv.URL).Call(context.Background(), http.MethodGet, "/devices/99", nil)
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want remote 404 passed through", status)
	}
	if value == nil {
		t.Error("error body dropped")
	}
}

func TestFindDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "Kitchen" {
			t.Errorf("name query = %q", r.URL.Query().Get("name"))
		}
		fmt.Fprint(w, `[{"id":77,"name":"Kitchen"},{"id":78,"name":"Other"}]`)
	}))
	defer srv.Close()

	m, err := newTestClient(srv.URL).FindDevice(context.Background(), "Kitchen")
	if err != nil {
		t.Fatalf("FindDevice() error = %v", err)
	}
	if m == nil {
		t.Fatal("device not found")
	}
	if id := codec.GetInt(m, "id", 0); id != 77 {
		t.Errorf("id = %d, want 77", id)
	}
}

func TestFindDeviceAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	m, err := newTestClient(srv.URL).FindDevice(context.Background(), "Nobody")
	if err != nil {
		t.Fatalf("FindDevice() error = %v", err)
	}
	if m != nil {
		t.Errorf("found %v, want nil", m)
	}
}

func TestFindDeviceRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FindDevice(context.Background(), "Kitchen")
	if !errors.Is(err, ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}

func TestCreateProxy(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":5120,"name":"Mirror"}`)
	}))
	defer srv.Close()

	dev := &quickapp.Device{
		Name:       "Mirror",
		Type:       "com.fibaro.binarySwitch",
		Interfaces: []string{"quickApp"},
		Properties: codec.NewMap(),
	}
	vars := codec.NewArray()

	id, err := newTestClient(srv.URL).CreateProxy(context.Background(), dev, vars)
	if err != nil {
		t.Fatalf("CreateProxy() error = %v", err)
	}
	if id != 5120 {
		t.Errorf("id = %d, want 5120", id)
	}
	if gotPath != "/api/quickApp/" {
		t.Errorf("path = %s", gotPath)
	}

	payload, err := codec.Decode(gotBody)
	if err != nil {
		t.Fatalf("payload undecodable: %v", err)
	}
	m, _ := codec.AsMap(payload)
	if got := codec.GetString(m, "type", ""); got != "com.fibaro.binarySwitch" {
		t.Errorf("payload type = %q", got)
	}
	if _, ok := m.Get("initialProperties"); !ok {
		t.Error("payload missing initialProperties")
	}
	if _, ok := m.Get("initialInterfaces"); !ok {
		t.Error("payload missing initialInterfaces")
	}
}

func TestUpdateProxy(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	parts := codec.NewMap()
	parts.Set("interfaces", codec.MakeArray(codec.String("battery")))

	if err := newTestClient(srv.URL).UpdateProxy(context.Background(), 4321, parts); err != nil {
		t.Fatalf("UpdateProxy() error = %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/api/devices/4321" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestUpdateProxyRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdateProxy(context.Background(), 1, codec.NewMap())
	if !errors.Is(err, ErrRemote) {
		t.Errorf("error = %v, want ErrRemote", err)
	}
}

// fakeBridge is a scriptable Bridge recording payloads.
type fakeBridge struct {
	response string
	err      error
	sent     []string
}

func (b *fakeBridge) Send(_ context.Context, payload string) (string, error) {
	b.sent = append(b.sent, payload)
	return b.response, b.err
}

func TestRestrictedCall(t *testing.T) {
	bridge := &fakeBridge{response: `[true,200,{"name":"remote"}]`}
	r := NewRestricted(bridge, false)

	data := codec.NewMap()
	data.Set("arg", codec.Number(1))
	value, status := r.Call(context.Background(), "GET", "/devices/12", data)

	if status != http.StatusOK {
		t.Errorf("status = %d, want envelope status 200", status)
	}
	m, ok := codec.AsMap(value)
	if !ok || codec.GetString(m, "name", "") != "remote" {
		t.Errorf("value = %v", value)
	}

	if len(bridge.sent) != 1 {
		t.Fatalf("bridge invoked %d times, want 1", len(bridge.sent))
	}
	request, err := codec.Decode(bridge.sent[0])
	if err != nil {
		t.Fatalf("request payload undecodable: %v", err)
	}
	rm, _ := codec.AsMap(request)
	if codec.GetString(rm, "method", "") != "GET" || codec.GetString(rm, "path", "") != "/devices/12" {
		t.Errorf("request envelope = %s", bridge.sent[0])
	}
	if _, ok := rm.Get("data"); !ok {
		t.Error("request envelope missing data")
	}
}

func TestRestrictedOfflineNeverInvokesBridge(t *testing.T) {
	bridge := &fakeBridge{response: `[true,200,null]`}
	r := NewRestricted(bridge, true)

	_, status := r.Call(context.Background(), "GET", "/devices", nil)
	if status != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", status)
	}
	if len(bridge.sent) != 0 {
		t.Errorf("bridge invoked %d times while offline", len(bridge.sent))
	}
}

func TestRestrictedMalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "empty response", response: ""},
		{name: "not json", response: "garbage"},
		{name: "wrong arity", response: `[true,200]`},
		{name: "not an array", response: `{"ok":true}`},
		{name: "wrongly typed", response: `["yes","200",null]`},
		{name: "ok false", response: `[false,403,null]`},
		{name: "bridge error", response: "", err: fmt.Errorf("peer gone")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRestricted(&fakeBridge{response: tt.response, err: tt.err}, false)
			_, status := r.Call(context.Background(), "GET", "/x", nil)
			if status != http.StatusNotImplemented {
				t.Errorf("status = %d, want 501", status)
			}
		})
	}
}

// captureSink records events fed by the poller.
type captureSink struct {
	mu     sync.Mutex
	events []*codec.Map
}

func (c *captureSink) Add(event *codec.Map) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return int64(len(c.events))
}

func (c *captureSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureSink) at(i int) *codec.Map {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[i]
}

func TestPollerFeedsRemoteEvents(t *testing.T) {
	var mu sync.Mutex
	var lasts []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lasts = append(lasts, r.URL.Query().Get("last"))
		first := len(lasts) == 1
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if first {
			fmt.Fprint(w, `{"last":7,"events":[{"type":"DevicePropertyUpdatedEvent","data":{"id":12}}]}`)
			return
		}
		fmt.Fprint(w, `{"last":7,"events":[]}`)
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := NewPoller(newTestClient(srv.URL), sink)
	p.interval = time.Millisecond
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sink.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sink.len() != 1 {
		t.Fatalf("mirrored %d events, want 1", sink.len())
	}
	if got := codec.GetString(sink.at(0), "type", ""); got != "DevicePropertyUpdatedEvent" {
		t.Errorf("event type = %q", got)
	}

	// Cursor advances: later requests poll from the remote's last.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(lasts)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lasts) < 2 {
		t.Fatal("poller did not keep polling")
	}
	if lasts[0] != "0" || lasts[1] != "7" {
		t.Errorf("cursor sequence = %v, want 0 then 7", lasts[:2])
	}
}

func TestPollerStopsOnRejectedCredentials(t *testing.T) {
	var mu sync.Mutex
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewPoller(newTestClient(srv.URL), &captureSink{})
	p.interval = time.Millisecond
	p.Start(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller kept running after 401")
	}
	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("polled %d times after credential rejection, want 1", requests)
	}
}

func TestPollerGivesUpOnUnreachableRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := NewPoller(newTestClient(srv.URL), &captureSink{})
	p.interval = time.Millisecond
	p.Start(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller kept retrying an unreachable remote")
	}
}
