// Package server exposes the render pipeline over HTTP.
//
// Routes:
//
//	POST /api/v1/render           JSON {id, src, options} -> {id, result, error}
//	POST /api/v1/render/{format}  raw DOT body -> rendered bytes
//	GET  /api/v1/engines          supported layout engines
//	GET  /api/v1/formats          supported output formats
//	GET  /healthz                 liveness probe
//
// Renders run on a [pipeline.Pool], so the number of concurrent engine runs
// is bounded by the pool size regardless of the number of connections.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/vizgo/pkg/pipeline"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config configures a Server.
type Config struct {
	// Timeout bounds each request, including time queued for a worker.
	Timeout time.Duration

	// Logger receives request logs. Nil discards them.
	Logger *log.Logger
}

// Server is the HTTP render service.
type Server struct {
	pool    *pipeline.Pool
	logger  *log.Logger
	timeout time.Duration
	router  chi.Router
}

// New returns a Server rendering on pool.
func New(pool *pipeline.Pool, cfg Config) *Server {
	s := &Server{
		pool:    pool,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Get("/engines", s.handleEngines)
		r.Get("/formats", s.handleFormats)
		r.Post("/render", s.handleRender)
		r.Post("/render/{format}", s.handleRenderRaw)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully, waiting up to the request timeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
//
// Request contexts keep the values of ctx but not its cancellation, so
// requests in flight when ctx ends run to completion within the shutdown
// window.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
