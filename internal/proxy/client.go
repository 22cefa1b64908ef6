package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
	"github.com/jangabrielsson/plua2/internal/quickapp"
)

const defaultCallTimeout = 30 * time.Second

// Client talks to the live remote controller's REST API. It carries the
// configured basic-auth credentials on every request and bounds each call
// with the configured timeout.
//
// Transport trouble never surfaces as an error from Call; it maps to
// status 408 so request handling keeps the no-hard-failure rule. The
// mirror-management calls (FindDevice, CreateProxy, UpdateProxy) do
// return errors, since their callers have a local fallback to take.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL  string
	user     string
	password string

	httpClient *http.Client
	log        Logger
}

// NewClient creates a remote API client from the remote section of the
// configuration.
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: noopLogger{},
	}
}

// SetLogger sets the logger for transport diagnostics.
func (c *Client) SetLogger(l Logger) {
	c.log = l
}

// Call forwards one API call to the remote controller: body codec-encoded
// as application/json, basic auth attached, path appended to baseURL/api.
//
// The remote's status passes through. A transport failure returns
// (nil, 408); a response body the codec cannot decode returns (nil, 501).
func (c *Client) Call(ctx context.Context, method, path string, body codec.Value) (codec.Value, int) {
	var reader io.Reader
	if body != nil {
		encoded, err := codec.Encode(body)
		if err != nil {
			c.log.Warn("request body encode failed", "path", path, "error", err)
			return nil, http.StatusNotImplemented
		}
		reader = strings.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		c.log.Warn("request build failed", "path", path, "error", err)
		return nil, http.StatusRequestTimeout
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("remote call failed", "method", method, "path", path, "error", err)
		return nil, http.StatusRequestTimeout
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("remote response read failed", "path", path, "error", err)
		return nil, http.StatusRequestTimeout
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, resp.StatusCode
	}
	value, err := codec.Decode(string(raw))
	if err != nil {
		c.log.Warn("remote response undecodable", "path", path, "error", err)
		return nil, http.StatusNotImplemented
	}
	return value, resp.StatusCode
}

// FindDevice looks up a remote device by name. It returns (nil, nil) when
// the remote has no device of that name.
func (c *Client) FindDevice(ctx context.Context, name string) (*codec.Map, error) {
	value, status := c.Call(ctx, http.MethodGet, "/devices?name="+url.QueryEscape(name), nil)
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: device lookup returned %d", ErrRemote, status)
	}
	list, ok := codec.AsArray(value)
	if !ok {
		return nil, fmt.Errorf("%w: device lookup wants a list", ErrBadResponse)
	}
	for i := 0; i < list.Len(); i++ {
		m, ok := codec.AsMap(list.At(i))
		if !ok {
			continue
		}
		if got, ok := m.Get("name"); ok {
			if s, _ := codec.AsString(got); s == name {
				return m, nil
			}
		}
	}
	return nil, nil
}

// CreateProxy creates a remote mirror for the device and returns its
// remote id.
func (c *Client) CreateProxy(ctx context.Context, d *quickapp.Device, vars *codec.Array) (int, error) {
	props := codec.NewMap()
	if d.Properties != nil {
		for _, k := range d.Properties.Keys() {
			v, _ := d.Properties.Get(k)
			props.Set(k, v)
		}
	}
	props.Set("quickAppVariables", vars)

	ifs := codec.NewArray()
	for _, s := range d.Interfaces {
		ifs.Append(codec.String(s))
	}

	payload := codec.NewMap()
	payload.Set("name", codec.String(d.Name))
	payload.Set("type", codec.String(d.Type))
	payload.Set("initialProperties", props)
	payload.Set("initialInterfaces", ifs)

	value, status := c.Call(ctx, http.MethodPost, "/quickApp/", payload)
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, fmt.Errorf("%w: proxy create returned %d", ErrRemote, status)
	}
	created, ok := codec.AsMap(value)
	if !ok {
		return 0, fmt.Errorf("%w: proxy create wants a device object", ErrBadResponse)
	}
	id := codec.GetInt(created, "id", 0)
	if id == 0 {
		return 0, fmt.Errorf("%w: created device carries no id", ErrBadResponse)
	}
	return id, nil
}

// UpdateProxy pushes changed parts of a mirrored device to the remote.
func (c *Client) UpdateProxy(ctx context.Context, remoteID int, parts *codec.Map) error {
	_, status := c.Call(ctx, http.MethodPut, fmt.Sprintf("/devices/%d", remoteID), parts)
	if status != http.StatusOK {
		return fmt.Errorf("%w: proxy update returned %d", ErrRemote, status)
	}
	return nil
}

// Logger is the minimal logging interface the client reports through.
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
