// Package server hosts transaction graphs over HTTP.
//
// Routes:
//
//	GET /                       search page
//	GET /healthz                liveness
//	GET /api/graph/{address}    scene description (JSON)
//	GET /graph/{address}.{ext}  svg, json, yaml, dot, graphviz, png or pdf
//	GET /metrics                Prometheus metrics, when configured
//
// Query parameters depth, iterations, seed, theme, engine and refresh
// override the server defaults for one request. Every request is rendered
// through a [pipeline.Runner], so seeded requests share its artifact cache.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fraudy/flowgraph/pkg/pipeline"
)

// Defaults for the HTTP listener.
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 10 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultRequestTimeout = 20 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the options every request starts from.
func WithDefaults(o pipeline.Options) Option { return func(s *Server) { s.defaults = o } }

// WithLogger sets the access and error logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics serves the gatherer's metrics at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{}) }
}

// WithTimeouts sets the listener read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) { s.readTimeout, s.writeTimeout = read, write }
}

// WithRequestTimeout bounds the time spent rendering one request.
func WithRequestTimeout(d time.Duration) Option { return func(s *Server) { s.requestTimeout = d } }

// Server renders graphs on demand.
type Server struct {
	runner   *pipeline.Runner
	defaults pipeline.Options
	logger   *log.Logger
	metrics  http.Handler

	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration

	started time.Time
	router  chi.Router
}

// New creates a server that renders through runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:         runner,
		defaults:       pipeline.DefaultOptions(),
		logger:         runner.Logger,
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		requestTimeout: DefaultRequestTimeout,
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Group(func(r chi.Router) {
		r.Get("/api/graph/{address}", s.handleScene)
		r.Get("/graph/{file}", s.handleArtifact)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound(r.URL.Path))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
