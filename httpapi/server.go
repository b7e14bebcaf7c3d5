package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/mcpserver"
	"github.com/isdmx/coderunner/sandbox"
)

const (
	readHeaderTimeout = 10 * time.Second
	// A character costs at most six bytes in JSON, as a \uXXXX escape.
	maxEncodedRuneLen = 6
	bodySlack         = 4 << 10
)

// Server is the HTTP front end of the executor.
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	executor sandbox.SandboxExecutor
	registry *sandbox.Registry
	router   chi.Router
	http     *http.Server
}

// Params groups the optional collaborators of New.
type Params struct {
	Metrics *prometheus.Registry
	MCP     *mcpserver.MCPServer
}

// New builds the router. Metrics and MCP routes are only mounted when their
// collaborators are present.
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.SandboxExecutor, registry *sandbox.Registry, p Params) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		executor: executor,
		registry: registry,
	}
	s.router = s.routes(p)
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		// Execute may hold a request for the full compile and run budget.
		WriteTimeout: 2*cfg.GetTimeout() + cfg.GetKillGrace() + 10*time.Second,
	}
	return s
}

func (s *Server) routes(p Params) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
		r.Get("/languages", s.handleLanguages)
	})

	if p.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}
	if p.MCP != nil && s.config.Server.MCPPath != "" {
		r.Handle(s.config.Server.MCPPath, p.MCP.HTTPHandler())
	}

	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	s.logger.Info("starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.String("mcp_path", s.config.Server.MCPPath))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.http.Shutdown(ctx)
}
