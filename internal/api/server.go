package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nberridge/motion-core/internal/device"
	"github.com/nberridge/motion-core/internal/gateway"
	"github.com/nberridge/motion-core/internal/infrastructure/config"
	"github.com/nberridge/motion-core/internal/infrastructure/logging"
	"github.com/nberridge/motion-core/internal/infrastructure/mqtt"
	"github.com/nberridge/motion-core/internal/playback"
	"github.com/nberridge/motion-core/internal/sequence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// wsChannelSequenceEvent is the WebSocket channel playback events are
// broadcast on.
const wsChannelSequenceEvent = "sequence.event"

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Sequences *sequence.Registry
	Devices   *device.Registry
	Engine    *playback.Engine
	Gateway   *gateway.Gateway // Optional; nil disables bus mirroring and controller health
	MQTT      *mqtt.Client     // Optional; nil degrades system status reporting
	Version   string
	StartedAt time.Time
}

// Server is the HTTP API server for Motion Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	sequences *sequence.Registry
	devices   *device.Registry
	engine    *playback.Engine
	gateway   *gateway.Gateway
	mqtt      *mqtt.Client
	version   string
	startedAt time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registries, engine)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sequences == nil {
		return nil, fmt.Errorf("sequence registry is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("playback engine is required")
	}

	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		sequences: deps.Sequences,
		devices:   deps.Devices,
		engine:    deps.Engine,
		gateway:   deps.Gateway,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startedAt: startedAt,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, launches the engine
// event relay, and starts the HTTP listener in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	go s.relayEngineEvents(srvCtx)

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
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// relayEngineEvents forwards playback lifecycle events to WebSocket
// clients and, when a gateway is wired, mirrors them onto the MQTT bus.
func (s *Server) relayEngineEvents(ctx context.Context) {
	sub := s.engine.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			s.hub.Broadcast(wsChannelSequenceEvent, evt)
			if s.gateway != nil {
				if err := s.gateway.PublishRunEvent(evt); err != nil {
					s.logger.Warn("failed to mirror run event to MQTT",
						"event", evt.Type,
						"error", err,
					)
				}
			}
		}
	}
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

	// Cancel background goroutines (hub, event relay)
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
