// Package http exposes stream resolution over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cantio/internal/core"
)

const (
	serviceName     = "cantio"
	shutdownTimeout = 10 * time.Second
)

// Resolver turns a media URL into a playable stream.
type Resolver interface {
	Resolve(ctx context.Context, req core.ResolutionRequest) (*core.ResolutionResult, error)
}

// URLGuard limits how often the same target URL may be resolved.
type URLGuard interface {
	Allow(key string) bool
}

// Dependencies are the collaborators behind the routes. Guard and Metrics are optional.
type Dependencies struct {
	Resolver        Resolver
	Guard           URLGuard
	Metrics         *Metrics
	Gatherer        prometheus.Gatherer
	RequestDeadline time.Duration
}

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
}

func NewServer(config *core.ServerConfig, deps Dependencies, logger *zap.Logger) *Server {
	logger = logger.Named("http")
	router := setupRoutes(config, deps, logger)

	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, router),
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func setupRoutes(config *core.ServerConfig, deps Dependencies, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", homeHandler(logger))
	r.Get("/healthz", statusHandler("ok"))
	r.Get("/readyz", statusHandler("ready"))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	stream := r.With()
	if config.RateLimitPerMinute > 0 {
		stream = stream.With(RateLimit(RateLimitConfig{
			RequestLimit: config.RateLimitPerMinute,
			WindowSize:   time.Minute,
			OnLimited: func() {
				if deps.Metrics != nil {
					deps.Metrics.RecordRateLimited("client")
				}
			},
		}))
	}
	stream.Get("/stream", newStreamHandler(deps, logger).ServeHTTP)

	return r
}

func statusHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": status, "service": serviceName})
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>Cantio</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
    </style>
</head>
<body>
    <h1>Cantio</h1>
    <p>Resolves media page URLs into playable audio streams.</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>/stream?url=...</code> - Resolve a stream</div>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
