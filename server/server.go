// Package server implements the TaskFlow HTTP server, REST API, and SSE real-time events.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/GoCodeAlone/taskflow/comms"
	"github.com/GoCodeAlone/taskflow/config"
	"github.com/GoCodeAlone/taskflow/server/api"
	"github.com/GoCodeAlone/taskflow/server/ws"
	"github.com/GoCodeAlone/taskflow/task"
)

// Server is the TaskFlow HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	handler http.Handler
	httpSrv *http.Server
	logger  *slog.Logger

	tasks  *task.Service
	bus    comms.Bus
	hub    *ws.Hub
	detach func()

	version string
}

// New creates a Server that serves svc and streams events from bus.
// Routes are registered immediately so Handler is usable without Start.
func New(cfg config.Config, ver string, logger *slog.Logger, svc *task.Service, bus comms.Bus) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		logger:  logger,
		tasks:   svc,
		bus:     bus,
		hub:     ws.NewHub(logger),
		version: ver,
	}
	if bus != nil {
		s.detach = s.hub.Attach(bus)
	}
	s.registerRoutes()
	s.handler = requestID(accessLog(logger, s.mux))

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8000"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening on the configured address and blocks until the
// server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until the server stops.
// A server stopped before Serve is called returns nil immediately.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
	err := s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop detaches from the bus, ends open event streams and gracefully shuts
// down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	s.hub.Close()
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	h := &api.Handlers{
		Tasks:   s.tasks,
		Bus:     s.bus,
		Logger:  s.logger,
		Version: s.version,
	}
	h.RegisterRoutes(s.mux)

	s.mux.Handle("GET /events", s.hub)
}
