package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	// The whole emulated controller surface funnels through the dispatch
	// router, which decides locally-answered versus forwarded per call.
	r.HandleFunc("/api/*", s.handleAPI)
	r.HandleFunc("/api", s.handleAPI)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	out := codec.NewMap()
	out.Set("status", codec.String("ok"))
	out.Set("clients", codec.Number(s.hub.ClientCount()))
	writeValue(w, http.StatusOK, out)
}

// handleAPI maps one inbound HTTP call onto the dispatch router: the /api
// prefix is stripped, the body codec-decoded, and the dispatch result
// codec-encoded back out.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body codec.Value
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}
		if len(strings.TrimSpace(string(raw))) > 0 {
			body, err = codec.Decode(string(raw))
			if err != nil {
				writeError(w, http.StatusBadRequest, "request body is not valid JSON")
				return
			}
		}
	}

	value, status := s.dispatch.Dispatch(r.Context(), r.Method, path, body)
	writeValue(w, status, value)
}
