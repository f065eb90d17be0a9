// Package api provides the HTTP REST API and WebSocket server for Home Core.
//
// It exposes the latest sensor values, device control, fridge inventory and
// face recognition queries to the dashboard, and pushes live events over
// WebSocket.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"homecore/internal/device"
	"homecore/internal/dispatch"
	"homecore/internal/face"
	"homecore/internal/infrastructure/config"
	"homecore/internal/infrastructure/logging"
	"homecore/internal/inventory"
	"homecore/internal/sensor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Publisher sends MQTT messages for the control endpoints.
// Satisfied by *mqtt.Client.
type Publisher interface {
	PublishString(topic string, payload string, qos byte, retained bool) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Home       config.HomeConfig
	Logger     *logging.Logger
	Dispatcher *dispatch.Dispatcher
	Cache      *dispatch.Cache
	Devices    *device.Reconciler
	Inventory  *inventory.Reconciler
	Faces      *face.Recorder
	Readings   sensor.Repository

	// Publisher is optional; control endpoints return an error to the
	// client when commands cannot be published.
	Publisher Publisher

	// PublishQoS is the QoS level for outbound control messages.
	PublishQoS byte

	// ExternalHub lets the caller share one hub between the API server
	// and the dispatcher. If nil, the server creates its own.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for Home Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	home        config.HomeConfig
	logger      *logging.Logger
	dispatcher  *dispatch.Dispatcher
	cache       *dispatch.Cache
	devices     *device.Reconciler
	inventory   *inventory.Reconciler
	faces       *face.Recorder
	readings    sensor.Repository
	publisher   Publisher
	publishQoS  byte
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, dispatcher, stores)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Cache == nil || deps.Devices == nil || deps.Inventory == nil || deps.Faces == nil {
		return nil, fmt.Errorf("cache, devices, inventory and faces are required")
	}
	// Publisher is optional - control endpoints report failure without it

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		home:       deps.Home,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		devices:    deps.Devices,
		inventory:  deps.Inventory,
		faces:      deps.Faces,
		readings:   deps.Readings,
		publisher:  deps.Publisher,
		publishQoS: deps.PublishQoS,
		version:    deps.Version,
	}

	// Use externally-provided hub if available (the dispatcher usually
	// holds the same hub for MQTT-driven broadcasts).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, creating one if needed. Exposed so the
// dispatcher can be wired to the same hub before Start().
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
