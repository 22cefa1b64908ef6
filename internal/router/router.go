package router

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// StatusDeclined is the internal "not actually handled" signal a handler
// returns to fall through to the remote. It is not an HTTP status and
// never reaches a transport; Dispatch resolves it before returning.
const StatusDeclined = -1

// Request carries one dispatched API call into a handler.
type Request struct {
	Method string
	Path   string

	// Vars holds the values bound by :name segments of the matched pattern.
	Vars map[string]string

	Query url.Values

	// Body is the decoded request body, nil when the call carries none.
	Body codec.Value
}

// Handler answers one API call with (body, status). Returning
// StatusDeclined passes the call on as if no route had matched.
type Handler func(ctx context.Context, req *Request) (codec.Value, int)

// Forwarder sends an unhandled call upstream. The proxy client implements
// it; offline dispatchers run without one.
type Forwarder interface {
	Call(ctx context.Context, method, path string, body codec.Value) (codec.Value, int)
}

type route struct {
	method   string
	segments []string
	handler  Handler
}

// Router dispatches API calls against an ordered route table and decides,
// per call, whether the emulator answers or the remote does.
//
// Routes are tried in registration order; the first pattern match wins.
// A miss or a declined call forwards upstream when a forwarder is present
// and the router is not offline; otherwise it answers 408 without any
// network attempt.
type Router struct {
	routes  []route
	forward Forwarder
	offline bool
	log     Logger
}

// New creates a router. forward may be nil, which behaves like offline
// for unhandled calls.
func New(offline bool, forward Forwarder) *Router {
	return &Router{
		forward: forward,
		offline: offline,
		log:     noopLogger{},
	}
}

// SetLogger sets the dispatch logger.
func (r *Router) SetLogger(l Logger) {
	r.log = l
}

// Handle appends a route. Pattern segments starting with ':' bind the
// corresponding path segment into Request.Vars; a trailing '*' segment
// matches any remainder.
func (r *Router) Handle(method, pattern string, h Handler) {
	r.routes = append(r.routes, route{
		method:   method,
		segments: splitPath(pattern),
		handler:  h,
	})
}

// Dispatch routes one call. path may carry a query string; it is stripped
// for matching but forwarded intact.
func (r *Router) Dispatch(ctx context.Context, method, path string, body codec.Value) (codec.Value, int) {
	cleanPath, rawQuery, _ := strings.Cut(path, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	segments := splitPath(cleanPath)

	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		vars, ok := match(rt.segments, segments)
		if !ok {
			continue
		}
		value, status := rt.handler(ctx, &Request{
			Method: method,
			Path:   cleanPath,
			Vars:   vars,
			Query:  query,
			Body:   body,
		})
		if status == StatusDeclined {
			break
		}
		return value, status
	}

	if r.offline || r.forward == nil {
		r.log.Debug("unhandled call in offline mode", "method", method, "path", cleanPath)
		return nil, http.StatusRequestTimeout
	}
	return r.forward.Call(ctx, method, path, body)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// match binds pattern segments against path segments, returning the bound
// variables on success.
func match(pattern, path []string) (map[string]string, bool) {
	var vars map[string]string
	for i, seg := range pattern {
		if seg == "*" {
			return vars, true
		}
		if i >= len(path) {
			return nil, false
		}
		if strings.HasPrefix(seg, ":") {
			if vars == nil {
				vars = make(map[string]string)
			}
			vars[seg[1:]] = path[i]
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}
	if len(path) != len(pattern) {
		return nil, false
	}
	return vars, true
}

// Logger is the minimal logging interface the router reports through.
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
