// Package api serves clustering over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	gql "github.com/dd0wney/cluso-louvain/pkg/graphql"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/auth"
	"github.com/dd0wney/cluso-louvain/pkg/events"
	"github.com/dd0wney/cluso-louvain/pkg/health"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/store"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// Defaults for Config fields left zero.
const (
	DefaultAlgorithmTimeout = 60 * time.Second
	DefaultMaxBodyBytes     = 32 << 20
	DefaultReadTimeout      = 30 * time.Second
	DefaultWriteTimeout     = 2 * time.Minute
	shutdownTimeout         = 10 * time.Second
)

// Config holds server settings.
type Config struct {
	AlgorithmTimeout time.Duration
	MaxBodyBytes     int64
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	// Louvain supplies defaults for request fields left unset.
	Louvain algorithms.LouvainOptions
}

// Deps are the collaborators of a Server. Only Store is required.
type Deps struct {
	Store   store.RunStore
	Tokens  *auth.TokenManager // nil disables authentication
	Metrics *metrics.Registry
	Bus     *events.Bus
	Logger  logging.Logger
}

// Server represents the HTTP API server
type Server struct {
	config         Config
	store          store.RunStore
	tokens         *auth.TokenManager
	metrics        *metrics.Registry
	bus            *events.Bus
	logger         logging.Logger
	graphqlHandler *gql.Handler
	health         *health.Checker
}

// NewServer creates a new API server
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("api: run store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if cfg.AlgorithmTimeout <= 0 {
		cfg.AlgorithmTimeout = DefaultAlgorithmTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Louvain.MaxPassesPerLevel == 0 {
		cfg.Louvain = algorithms.DefaultLouvainOptions()
	}

	schema, err := gql.NewSchema(deps.Store, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	checker := health.NewChecker(Version)
	checker.RegisterReadiness("store", health.StoreCheck(deps.Store.Ping))
	checker.Register("memory", health.MemoryCheck(0))
	if bus := deps.Bus; bus != nil {
		checker.Register("events", health.SubscriberCheck(func() int {
			return bus.SubscriberCount(events.TopicLevel) + bus.SubscriberCount(events.TopicRun)
		}))
	}

	return &Server{
		config:         cfg,
		store:          deps.Store,
		tokens:         deps.Tokens,
		metrics:        deps.Metrics,
		bus:            deps.Bus,
		logger:         deps.Logger.With(logging.Component("api")),
		graphqlHandler: gql.NewHandler(schema, gql.DefaultMaxDepth, cfg.MaxBodyBytes),
		health:         checker,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health.Handler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /v1/cluster", s.requireRole(auth.RoleCluster, s.handleCluster))
	mux.HandleFunc("GET /v1/runs", s.requireRole(auth.RoleViewer, s.handleListRuns))
	mux.HandleFunc("GET /v1/runs/{id}", s.requireRole(auth.RoleViewer, s.handleGetRun))
	mux.HandleFunc("POST /graphql", s.requireRole(auth.RoleViewer, s.graphqlHandler.ServeHTTP))

	var h http.Handler = mux
	h = s.bodySizeLimitMiddleware(h, s.config.MaxBodyBytes)
	h = s.metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go s.updateMetricsPeriodically(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", logging.String("addr", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// updateMetricsPeriodically updates system metrics every 10 seconds
func (s *Server) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	s.metrics.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateSystemMetrics()
		}
	}
}
