package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sadesguy/eblu/internal/bluetooth"
	"github.com/sadesguy/eblu/internal/infrastructure/config"
	"github.com/sadesguy/eblu/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Reconciler *bluetooth.Reconciler
	Controller *bluetooth.Controller
	History    bluetooth.HistoryRepository
	Events     *bluetooth.Broadcaster
	MaxDevices int // empty-query list cap, from display config
	Version    string
}

// Server is the HTTP API server for eblu.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	reconciler *bluetooth.Reconciler
	controller *bluetooth.Controller
	history    bluetooth.HistoryRepository
	events     *bluetooth.Broadcaster
	maxDevices int
	version    string
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, reconciler, controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	// History and Events are optional; the matching endpoints and the
	// WebSocket event relay degrade gracefully without them.

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		reconciler: deps.Reconciler,
		controller: deps.Controller,
		history:    deps.History,
		events:     deps.Events,
		maxDevices: deps.MaxDevices,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, wires the device event
// stream into the hub, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
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

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay reconciler/controller events to WebSocket subscribers.
	s.relayEvents()

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// relayEvents subscribes to the device event stream and forwards each event
// to WebSocket clients subscribed to its channel.
func (s *Server) relayEvents() {
	if s.events == nil {
		return
	}
	s.events.Subscribe(func(ev bluetooth.Event) {
		if s.hub == nil {
			return
		}
		s.hub.Broadcast(string(ev.Type), eventPayload(ev))
	})
}

// eventPayload shapes an event for the wire. Only the fields relevant to the
// event type are populated, so the others are omitted from the JSON.
func eventPayload(ev bluetooth.Event) map[string]any {
	payload := make(map[string]any, 2)
	if ev.Device != nil {
		payload["device"] = ev.Device
	}
	if ev.Devices != nil {
		payload["devices"] = ev.Devices
		payload["count"] = len(ev.Devices)
	}
	if ev.Discovered != nil {
		payload["discovered"] = ev.Discovered
		payload["count"] = len(ev.Discovered)
	}
	return payload
}
