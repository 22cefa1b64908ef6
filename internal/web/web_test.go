package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
	"github.com/jangabrielsson/plua2/internal/infrastructure/logging"
	"github.com/jangabrielsson/plua2/internal/quickapp"
	"github.com/jangabrielsson/plua2/internal/router"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *quickapp.Registry) {
	t.Helper()

	templates, err := quickapp.LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	registry := quickapp.NewRegistry(templates, 5000)
	store := events.NewStore()

	dispatch := router.New(true, nil)
	router.RegisterRoutes(dispatch, router.Services{
		Registry: registry,
		Globals:  quickapp.NewGlobalStore(),
		Events:   store,
	})

	cfg := &config.Config{}
	logger := logging.New(config.LoggingConfig{Level: "error", Output: "stderr"}, "test")

	srv, err := New(Deps{
		Config: cfg,
		Logger: logger,
		Router: dispatch,
		Events: store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv.hub = NewHub(cfg.WebSocket, logger)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	return srv, ts, registry
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestAPIDispatch(t *testing.T) {
	_, ts, _ := newTestServer(t)

	// Create a global through the HTTP surface, then read it back.
	resp, err := http.Post(ts.URL+"/api/globalVariables", "application/json",
		strings.NewReader(`{"name":"mode","value":"home"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/globalVariables/mode")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	value, err := codec.Decode(string(raw))
	if err != nil {
		t.Fatalf("response undecodable: %v", err)
	}
	m, _ := codec.AsMap(value)
	if codec.GetString(m, "value", "") != "home" {
		t.Errorf("value = %s", raw)
	}
}

func TestAPIUnhandledOfflineIs408(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/no/such/endpoint")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestTimeout {
		t.Errorf("status = %d, want offline 408", resp.StatusCode)
	}
}

func TestAPIBadBodyIs400(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/globalVariables", "application/json",
		strings.NewReader(`{not json`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/devices", nil)
	req.Header.Set("Origin", "http://panel.local")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://panel.local" {
		t.Errorf("allow origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestHubBroadcast(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error", Output: "stderr"}, "test")
	hub := NewHub(config.WebSocketConfig{}, logger)

	client := &wsClient{hub: hub, send: make(chan []byte, 1)}
	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	hub.mu.Unlock()

	event := events.DevicePropertyUpdated(5000, "value", codec.Bool(true))
	hub.Broadcast(event)

	select {
	case data := <-client.send:
		value, err := codec.Decode(string(data))
		if err != nil {
			t.Fatalf("broadcast undecodable: %v", err)
		}
		m, _ := codec.AsMap(value)
		if codec.GetString(m, "type", "") != "event" {
			t.Errorf("envelope = %s", data)
		}
		if _, ok := m.Get("payload"); !ok {
			t.Error("envelope missing payload")
		}
	default:
		t.Fatal("nothing broadcast")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error", Output: "stderr"}, "test")
	hub := NewHub(config.WebSocketConfig{}, logger)

	// Buffer of one: the second broadcast must be dropped, not block.
	client := &wsClient{hub: hub, send: make(chan []byte, 1)}
	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	hub.mu.Unlock()

	event := events.DeviceCreated(5000, "com.fibaro.binarySwitch")
	hub.Broadcast(event)
	hub.Broadcast(event)

	if len(client.send) != 1 {
		t.Errorf("queued = %d, want 1", len(client.send))
	}
}

func TestServerLifecycleValidation(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() accepted empty deps")
	}
}
