package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/infrastructure/logging"
	"github.com/nerrad567/plantline/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout bounds the wait for in-flight requests on Close.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a component whose health is reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Plant    config.PlantConfig
	Planner  config.PlannerConfig
	Logger   *logging.Logger
	Engine   *engine.Engine
	Runs     engine.Repository
	Metrics  *metrics.Registry

	// Hub is shared with the engine so its broadcasts reach WebSocket
	// clients. A nil Hub gets a private one.
	Hub *Hub

	// Health lists the components checked by /health, by name.
	Health  map[string]HealthChecker
	Version string
}

// Server is the plantline HTTP API server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	plantCfg config.PlantConfig
	planCfg  config.PlannerConfig
	logger   *logging.Logger
	engine   *engine.Engine
	runs     engine.Repository
	metrics  *metrics.Registry
	health   map[string]HealthChecker
	version  string
	hub      *Hub

	server *http.Server

	// runCtx parents background runs; Close cancels it.
	runCtx    context.Context
	cancel    context.CancelFunc
	runMu     sync.Mutex
	activeRun string
	runWG     sync.WaitGroup
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Runs == nil {
		return nil, fmt.Errorf("run repository is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		plantCfg: deps.Plant,
		planCfg:  deps.Planner,
		logger:   deps.Logger,
		engine:   deps.Engine,
		runs:     deps.Runs,
		metrics:  deps.Metrics,
		health:   deps.Health,
		version:  deps.Version,
		hub:      deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start listens in the background. ctx cancels the hub and any active run.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.runCtx.Done():
		}
	}()
	go s.hub.Run(s.runCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close cancels the active run, waits for it to wind down and shuts the
// listener down gracefully.
func (s *Server) Close() error {
	s.cancel()
	s.runWG.Wait()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server was started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
