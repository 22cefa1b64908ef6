package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
	"github.com/jangabrielsson/plua2/internal/infrastructure/logging"
	"github.com/jangabrielsson/plua2/internal/router"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the web server.
type Deps struct {
	Config *config.Config
	Logger *logging.Logger
	Router *router.Router
	Events *events.Store
}

// Server is the HTTP front of the emulator. It maps inbound /api calls
// onto the dispatch router and pushes refresh-states events out over
// WebSocket.
//
// The server follows the usual lifecycle:
//
//	server, err := web.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	dispatch *router.Router
	events   *events.Store

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a web server with the given dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Router == nil {
		return nil, fmt.Errorf("dispatch router is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event store is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.Component("web"),
		dispatch: deps.Router,
		events:   deps.Events,
	}, nil
}

// Start begins listening for HTTP connections. The WebSocket hub is
// started and hooked into the event store so every recorded event is
// pushed to connected clients as it happens.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.cfg.WebSocket, s.logger)
	go s.hub.Run(srvCtx)
	s.events.SetNotify(s.hub.Broadcast)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port),
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		IdleTimeout:  s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("web server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("web server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	return nil
}
