// Package server exposes the ingest endpoint, the control API and the
// websocket render feed over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/render"
)

// Engine is the command target behind every route.
type Engine interface {
	Apply(cmd core.Command) (core.Outcome, error)
	Status() core.Status
}

// Hub registers websocket renderers and receives the status produced by
// control requests.
type Hub interface {
	Subscribe(r render.Renderer) (string, func())
	PublishStatus(st core.Status)
}

// DefaultMaxBodyBytes bounds request bodies when none is configured.
const DefaultMaxBodyBytes = 1 << 20

// Config contains configuration options for the server.
type Config struct {
	Address         string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	Engine          Engine
	Hub             Hub
	Logger          *log.Logger
	Now             func() time.Time
}

// Server is the HTTP collaborator of the engine.
type Server struct {
	address  string
	maxBody  int64
	shutdown time.Duration
	engine   Engine
	hub      Hub
	logger   *log.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
	server   *http.Server

	wsMu    sync.Mutex
	clients map[*wsClient]struct{}
}

// New creates a server with the provided configuration.
func New(cfg Config) *Server {
	s := &Server{
		address:  cfg.Address,
		maxBody:  cfg.MaxBodyBytes,
		shutdown: cfg.ShutdownTimeout,
		engine:   cfg.Engine,
		hub:      cfg.Hub,
		logger:   cfg.Logger,
		now:      cfg.Now,
		clients:  make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local dashboards are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.shutdown <= 0 {
		s.shutdown = 5 * time.Second
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server.RegisterOnShutdown(s.closeClients)
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sensor", s.handleSensor)
	mux.HandleFunc("POST /control/reset", s.handleReset)
	mux.HandleFunc("POST /control/stream", s.handleStream)
	mux.HandleFunc("POST /control/window", s.handleWindow)
	mux.HandleFunc("POST /control/recording", s.handleRecording)
	mux.HandleFunc("POST /dataset", s.handleDatasetLoad)
	mux.HandleFunc("DELETE /dataset", s.handleDatasetClear)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.handleWS)
	}

	return mux
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully: new connections are refused and
// in-flight requests complete. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.address, err)
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed", "err", err)
		// Force close the server if graceful shutdown fails
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("server: close: %w", err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}
